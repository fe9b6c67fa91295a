package flame

import "github.com/go-gl/mathgl/mgl32"

// DefaultZoom is the zoom of a freshly reset camera.
const DefaultZoom = 0.5

// Camera is an orthographic 2D view onto the flame plane. At zoom z and
// aspect ratio a it shows x in [px-a/z, px+a/z] and y in [py-1/z, py+1/z].
type Camera struct {
	position mgl32.Vec2
	view     mgl32.Vec2
	zoom     float32
	aspect   float32
	mat      mgl32.Mat4
}

// NewCamera returns a camera centered on the origin for a width×height
// target.
func NewCamera(width, height int) *Camera {
	c := &Camera{}
	c.init(width, height)
	return c
}

func (c *Camera) init(width, height int) {
	c.position = mgl32.Vec2{}
	c.zoom = DefaultZoom
	c.SetAspect(width, height)
}

// Reset recenters the camera and restores the default zoom.
func (c *Camera) Reset() {
	c.position = mgl32.Vec2{}
	c.zoom = DefaultZoom
	c.updateView(1)
}

// SetAspect sets the aspect ratio from a target size.
func (c *Camera) SetAspect(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
	c.updateView(1)
}

// Move pans the camera by (dx, dy) in flame coordinates.
func (c *Camera) Move(dx, dy float32) {
	c.position = c.position.Add(mgl32.Vec2{dx, dy})
	c.updateMatrix()
}

// Zoom multiplies the zoom by factor.
func (c *Camera) Zoom(factor float32) {
	c.updateView(factor)
}

func (c *Camera) updateView(factor float32) {
	c.zoom *= factor
	c.view = mgl32.Vec2{1 / c.zoom * c.aspect, 1 / c.zoom}
	c.updateMatrix()
}

func (c *Camera) updateMatrix() {
	c.mat = mgl32.Ortho2D(
		c.position.X()-c.view.X(), c.position.X()+c.view.X(),
		c.position.Y()-c.view.Y(), c.position.Y()+c.view.Y(),
	)
}

// Position returns the view center.
func (c *Camera) Position() (x, y float32) { return c.position.X(), c.position.Y() }

// ZoomLevel returns the current zoom.
func (c *Camera) ZoomLevel() float32 { return c.zoom }

// Aspect returns width/height of the current target.
func (c *Camera) Aspect() float32 { return c.aspect }

// Matrix returns the view matrix in row-major order, the layout the
// kernels multiply (x, y, 0, 1) with.
func (c *Camera) Matrix() [16]float32 {
	return [16]float32(c.mat.Transpose())
}
