package compute

import (
	"errors"
	"fmt"
)

// Dispatch layer errors.
var (
	// ErrUnknownBuffer is returned for handles or names that match no buffer.
	ErrUnknownBuffer = errors.New("compute: unknown buffer")

	// ErrUnknownKernel is returned for handles or names that match no kernel.
	ErrUnknownKernel = errors.New("compute: unknown kernel")

	// ErrArgOutOfRange is returned when an argument position is past the
	// kernel's declared arguments.
	ErrArgOutOfRange = errors.New("compute: argument position out of range")

	// ErrArgKind is returned when a binding does not match the declared
	// argument kind or value type.
	ErrArgKind = errors.New("compute: argument kind mismatch")

	// ErrArgUnbound is returned by Dispatch when an argument was never bound.
	ErrArgUnbound = errors.New("compute: argument not bound")

	// ErrBufferRange is returned for reads and writes past the end of a buffer.
	ErrBufferRange = errors.New("compute: buffer range out of bounds")

	// ErrMemoryBudgetExceeded is returned when a buffer would push device
	// memory use past the configured budget.
	ErrMemoryBudgetExceeded = errors.New("compute: memory budget exceeded")

	// ErrBuild is wrapped by devices when a kernel program fails to compile.
	ErrBuild = errors.New("compute: program build failed")

	// ErrClosed is returned by operations on a closed context.
	ErrClosed = errors.New("compute: context closed")
)

// ArgError describes a failed kernel argument binding or dispatch check.
type ArgError struct {
	Kernel string
	Pos    int
	Buffer string // empty unless a buffer was involved
	Err    error
}

func (e *ArgError) Error() string {
	if e.Buffer != "" {
		return fmt.Sprintf("kernel %q arg %d (buffer %q): %v", e.Kernel, e.Pos, e.Buffer, e.Err)
	}
	return fmt.Sprintf("kernel %q arg %d: %v", e.Kernel, e.Pos, e.Err)
}

func (e *ArgError) Unwrap() error { return e.Err }

// BufferError describes a failed buffer operation.
type BufferError struct {
	Op     string
	Buffer string
	Err    error
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("%s buffer %q: %v", e.Op, e.Buffer, e.Err)
}

func (e *BufferError) Unwrap() error { return e.Err }
