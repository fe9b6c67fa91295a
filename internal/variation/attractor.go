package variation

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/flame/internal/rng"
)

var sierpinskiCorners = [3]Point{
	{0, 0},
	{0.5 * 10, 0.8660254 * 10},
	{1 * 10, 0},
}

// Sierpinski runs n chaos-game steps toward the corners of a triangle with
// side 10, halving the distance each step.
func Sierpinski(p Point, seed *uint32, n uint32) Point {
	for range n {
		r := rng.Next(seed)
		var target Point
		switch {
		case r < 0.33:
			target = sierpinskiCorners[0]
		case r < 0.66:
			target = sierpinskiCorners[1]
		default:
			target = sierpinskiCorners[2]
		}
		p = Point{0.5 * (p.X + target.X), 0.5 * (p.Y + target.Y)}
	}
	return p
}

// Menger runs n steps of the Sierpinski carpet map: one of the eight outer
// cells of a 3x3 grid is chosen uniformly and p is scaled into it.
func Menger(p Point, seed *uint32, n uint32) Point {
	const third = float32(1.0) / 3
	const twoThirds = 2 * third
	cells := [8]Point{
		{0, 0}, {third, 0}, {twoThirds, 0},
		{0, third}, {twoThirds, third},
		{0, twoThirds}, {third, twoThirds}, {twoThirds, twoThirds},
	}
	for range n {
		i := int(math32.Floor(rng.Next(seed) * 8))
		if i > 7 {
			i = 7
		}
		p = Point{third*p.X + cells[i].X, third*p.Y + cells[i].Y}
	}
	return p
}
