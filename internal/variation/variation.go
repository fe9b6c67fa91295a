// Package variation holds the closed catalog of flame variations: nonlinear
// point transforms selected per iteration by the weighted selector.
//
// IDs follow the numbering of "The Fractal Flame Algorithm" (Draves, Reckase),
// so the set has gaps (14 is followed by 18). Only the IDs declared here are
// valid; Apply leaves the point unchanged for anything else.
package variation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"

	"github.com/gogpu/flame/internal/rng"
)

// ErrInvalidID is returned by Parse for names and numbers outside the catalog.
var ErrInvalidID = errors.New("variation: invalid id")

// Point is a position in flame space.
type Point struct {
	X, Y float32
}

// ID selects one transform of the catalog.
type ID uint32

// Catalog.
const (
	Linear       ID = 0
	Sinusoidal   ID = 1
	Spherical    ID = 2
	Swirl        ID = 3
	Horseshoe    ID = 4
	Polar        ID = 5
	Handkerchief ID = 6
	Heart        ID = 7
	Disc         ID = 8
	Spiral       ID = 9
	Hyperbolic   ID = 10
	Diamond      ID = 11
	Ex           ID = 12
	Julia        ID = 13
	Bent         ID = 14
	Exponential  ID = 18
	Power        ID = 19
	Cosine       ID = 20
	Bubble       ID = 28
	Cylinder     ID = 29
	Tangent      ID = 42
	Cross        ID = 48
)

var valid = [...]ID{
	Linear, Sinusoidal, Spherical, Swirl, Horseshoe, Polar, Handkerchief,
	Heart, Disc, Spiral, Hyperbolic, Diamond, Ex, Julia, Bent,
	Exponential, Power, Cosine, Bubble, Cylinder, Tangent, Cross,
}

var names = map[ID]string{
	Linear:       "linear",
	Sinusoidal:   "sinusoidal",
	Spherical:    "spherical",
	Swirl:        "swirl",
	Horseshoe:    "horseshoe",
	Polar:        "polar",
	Handkerchief: "handkerchief",
	Heart:        "heart",
	Disc:         "disc",
	Spiral:       "spiral",
	Hyperbolic:   "hyperbolic",
	Diamond:      "diamond",
	Ex:           "ex",
	Julia:        "julia",
	Bent:         "bent",
	Exponential:  "exponential",
	Power:        "power",
	Cosine:       "cosine",
	Bubble:       "bubble",
	Cylinder:     "cylinder",
	Tangent:      "tangent",
	Cross:        "cross",
}

// Valid returns every valid ID in ascending order.
// The returned slice is a copy.
func Valid() []ID {
	out := make([]ID, len(valid))
	copy(out, valid[:])
	return out
}

// IsValid reports whether id is part of the catalog.
func (id ID) IsValid() bool {
	_, ok := names[id]
	return ok
}

// String returns the variation name, or "variation(N)" for unknown ids.
func (id ID) String() string {
	if n, ok := names[id]; ok {
		return n
	}
	return "variation(" + strconv.FormatUint(uint64(id), 10) + ")"
}

// Parse accepts either a catalog name ("swirl") or its number ("3").
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		id := ID(n)
		if !id.IsValid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidID, n)
		}
		return id, nil
	}
	for id, name := range names {
		if name == s {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
}

// Apply transforms p with variation id. Julia consumes one draw from seed;
// every other variation is a pure function of p.
//
// Inputs at or near the origin can produce Inf or NaN for the variations
// that divide by the radius. The sample iterator tolerates this: such points
// fail the bounds test when plotted.
func Apply(id ID, p Point, seed *uint32) Point {
	switch id {
	case Linear:
		return p
	case Sinusoidal:
		return Point{math32.Sin(p.X), math32.Sin(p.Y)}
	case Spherical:
		r := radius(p)
		inv := 1 / (r * r)
		return Point{p.X * inv, p.Y * inv}
	case Swirl:
		r2 := p.X*p.X + p.Y*p.Y
		s, c := math32.Sincos(r2)
		return Point{p.X*s - p.Y*c, p.X*c + p.Y*s}
	case Horseshoe:
		inv := 1 / radius(p)
		return Point{inv * (p.X - p.Y) * (p.X + p.Y), inv * 2 * p.X * p.Y}
	case Polar:
		return Point{theta(p) / math32.Pi, radius(p) - 1}
	case Handkerchief:
		r, t := radius(p), theta(p)
		return Point{r * math32.Sin(t+r), r * math32.Cos(t-r)}
	case Heart:
		r, t := radius(p), theta(p)
		return Point{r * math32.Sin(t*r), r * -math32.Cos(t*r)}
	case Disc:
		r, t := radius(p), theta(p)
		k := t / math32.Pi
		return Point{math32.Sin(math32.Pi*r) * k, math32.Cos(math32.Pi*r) * k}
	case Spiral:
		r, t := radius(p), theta(p)
		inv := 1 / r
		return Point{(math32.Cos(t) + math32.Sin(r)) * inv, (math32.Sin(t) - math32.Cos(r)) * inv}
	case Hyperbolic:
		r, t := radius(p), theta(p)
		return Point{math32.Sin(t) / r, r * math32.Cos(t)}
	case Diamond:
		r, t := radius(p), theta(p)
		return Point{math32.Sin(t) * math32.Cos(r), math32.Cos(t) * math32.Sin(r)}
	case Ex:
		r, t := radius(p), theta(p)
		p0 := math32.Sin(t + r)
		p1 := math32.Cos(t - r)
		p0 *= p0 * p0
		p1 *= p1 * p1
		return Point{(p0 + p1) * r, (p0 - p1) * r}
	case Julia:
		r, t := radius(p), theta(p)
		var omega float32
		if rng.Next(seed) >= 0.5 {
			omega = math32.Pi
		}
		sq := math32.Sqrt(r)
		return Point{math32.Cos(t*0.5+omega) * sq, math32.Sin(t*0.5+omega) * sq}
	case Bent:
		if p.X < 0 {
			p.X *= 2
		}
		if p.Y < 0 {
			p.Y *= 0.5
		}
		return p
	case Exponential:
		e := math32.Exp(p.X - 1)
		return Point{e * math32.Cos(p.Y*math32.Pi), e * math32.Sin(p.Y*math32.Pi)}
	case Power:
		r, t := radius(p), theta(p)
		k := math32.Pow(r, math32.Sin(t))
		return Point{math32.Cos(t) * k, math32.Sin(t) * k}
	case Cosine:
		return Point{
			math32.Cos(math32.Pi*p.X) * math32.Cosh(p.Y),
			-math32.Sin(math32.Pi*p.X) * math32.Sinh(p.Y),
		}
	case Bubble:
		r2 := p.X*p.X + p.Y*p.Y
		k := 4 / (r2 + 4)
		return Point{p.X * k, p.Y * k}
	case Cylinder:
		return Point{math32.Sin(p.X), p.Y}
	case Tangent:
		return Point{math32.Sin(p.X) / math32.Cos(p.Y), math32.Tan(p.Y)}
	case Cross:
		d := p.X*p.X - p.Y*p.Y
		k := math32.Sqrt(1 / (d * d))
		return Point{p.X * k, p.Y * k}
	default:
		return p
	}
}

func radius(p Point) float32 { return math32.Hypot(p.X, p.Y) }

// theta keeps the (x, y) argument order of the flame paper's definition.
func theta(p Point) float32 { return math32.Atan2(p.X, p.Y) }
