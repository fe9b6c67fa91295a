package flame

import "errors"

// Sentinel errors returned by Flame sessions.
var (
	// ErrInvalidVariation is returned when a variation id is not part of
	// the supported set.
	ErrInvalidVariation = errors.New("flame: invalid variation")

	// ErrTooManyVariations is returned when adding a variation to a full set.
	ErrTooManyVariations = errors.New("flame: too many variations")

	// ErrIndexOutOfRange is returned for a variation index past the end of
	// the set.
	ErrIndexOutOfRange = errors.New("flame: variation index out of range")

	// ErrInvalidWeight is returned for a negative or non-finite variation
	// weight.
	ErrInvalidWeight = errors.New("flame: invalid variation weight")

	// ErrInvalidToneMap is returned for a gamma or darkness that is not a
	// positive finite number.
	ErrInvalidToneMap = errors.New("flame: invalid tone map parameter")

	// ErrInvalidSize is returned for a zero width or height.
	ErrInvalidSize = errors.New("flame: invalid size")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("flame: session closed")
)
