package flame

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/gogpu/flame/internal/color"
	"github.com/gogpu/flame/internal/variation"
)

// VariationID identifies one of the supported nonlinear variations.
type VariationID = variation.ID

// LCh is an OKLCh color (lightness, chroma, hue in radians).
type LCh = color.LCh

// RGB is a linear RGB triple.
type RGB = color.RGB

// DefaultMaxVariations is the default capacity of a variation set.
const DefaultMaxVariations = 16

// ValidVariations returns the supported variation ids in ascending order.
func ValidVariations() []VariationID { return variation.Valid() }

// Variation is one weighted map of the function system.
type Variation struct {
	ID     VariationID
	Color  LCh
	RGB    RGB // derived from Color
	Weight float32
}

// NewVariation returns a variation with its RGB cache filled in.
func NewVariation(id VariationID, c LCh, weight float32) Variation {
	return Variation{ID: id, Color: c, RGB: c.RGB(), Weight: weight}
}

// VariationSet is an ordered, bounded list of variations. New entries are
// appended at the tail; removal shifts the following entries down.
type VariationSet struct {
	items []Variation
	max   int
}

// NewVariationSet returns an empty set holding at most capacity entries.
func NewVariationSet(capacity int) *VariationSet {
	if capacity <= 0 {
		capacity = DefaultMaxVariations
	}
	return &VariationSet{items: make([]Variation, 0, capacity), max: capacity}
}

// Len returns the number of variations.
func (s *VariationSet) Len() int { return len(s.items) }

// Max returns the capacity of the set.
func (s *VariationSet) Max() int { return s.max }

// At returns the variation at index i.
func (s *VariationSet) At(i int) (Variation, error) {
	if i < 0 || i >= len(s.items) {
		return Variation{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(s.items))
	}
	return s.items[i], nil
}

// All returns a copy of the variations in order.
func (s *VariationSet) All() []Variation {
	out := make([]Variation, len(s.items))
	copy(out, s.items)
	return out
}

// IDs returns the variation ids in order.
func (s *VariationSet) IDs() []VariationID {
	out := make([]VariationID, len(s.items))
	for i, v := range s.items {
		out[i] = v.ID
	}
	return out
}

// Add appends v and returns its index.
func (s *VariationSet) Add(v Variation) (int, error) {
	if !v.ID.IsValid() {
		return -1, fmt.Errorf("%w: %d", ErrInvalidVariation, uint32(v.ID))
	}
	if err := checkWeight(v.Weight); err != nil {
		return -1, err
	}
	if len(s.items) >= s.max {
		return -1, fmt.Errorf("%w: max %d", ErrTooManyVariations, s.max)
	}
	v.RGB = v.Color.RGB()
	s.items = append(s.items, v)
	return len(s.items) - 1, nil
}

// Remove deletes the variation at index i, shifting the tail down by one.
func (s *VariationSet) Remove(i int) error {
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(s.items))
	}
	copy(s.items[i:], s.items[i+1:])
	s.items[len(s.items)-1] = Variation{}
	s.items = s.items[:len(s.items)-1]
	return nil
}

// SetID replaces the id of variation i.
func (s *VariationSet) SetID(i int, id VariationID) error {
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(s.items))
	}
	if !id.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidVariation, uint32(id))
	}
	s.items[i].ID = id
	return nil
}

// SetColor replaces the color of variation i and recomputes its RGB.
func (s *VariationSet) SetColor(i int, c LCh) error {
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(s.items))
	}
	s.items[i].Color = c
	s.items[i].RGB = c.RGB()
	return nil
}

// SetWeight replaces the weight of variation i.
func (s *VariationSet) SetWeight(i int, w float32) error {
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(s.items))
	}
	if err := checkWeight(w); err != nil {
		return err
	}
	s.items[i].Weight = w
	return nil
}

// checkWeight rejects weights that would break the cumulative selection
// thresholds.
func checkWeight(w float32) error {
	if w < 0 || math32.IsNaN(w) || math32.IsInf(w, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidWeight, w)
	}
	return nil
}

// pack lays the set out as the kernels read it: max ids, max*3 colors and
// max weights, zero past Len.
func (s *VariationSet) pack() (ids []uint32, colors, weights []float32) {
	ids = make([]uint32, s.max)
	colors = make([]float32, s.max*3)
	weights = make([]float32, s.max)
	for i, v := range s.items {
		ids[i] = uint32(v.ID)
		copy(colors[i*3:], v.RGB[:])
		weights[i] = v.Weight
	}
	return ids, colors, weights
}

// randomVariationID draws a valid id other than the identity.
func randomVariationID(r *rand.Rand) VariationID {
	valid := variation.Valid()
	return valid[1+r.IntN(len(valid)-1)]
}

// randomLCh draws a color with L in [0.3,0.8], C in [0,0.5] and any hue.
func randomLCh(r *rand.Rand) LCh {
	return LCh{
		L: 0.3 + r.Float32()*0.5,
		C: r.Float32() * 0.5,
		H: r.Float32() * 2 * math32.Pi,
	}
}

// ParseVariation accepts a variation name ("swirl") or number ("3").
func ParseVariation(s string) (VariationID, error) {
	id, err := variation.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidVariation, err)
	}
	return id, nil
}
