package cpu

import "github.com/gogpu/flame/internal/compute"

// Args gives kernels typed access to their bound arguments.
type Args []compute.BoundArg

// Words returns the words of the buffer bound at pos.
func (a Args) Words(pos int) []uint32 {
	return a[pos].Buffer.(*Buffer).Words()
}

// Uint32 returns the uint bound at pos.
func (a Args) Uint32(pos int) uint32 { return a[pos].Value.AsUint32() }

// Float32 returns the float bound at pos.
func (a Args) Float32(pos int) float32 { return a[pos].Value.AsFloat32() }

// Uint8 returns the uchar bound at pos.
func (a Args) Uint8(pos int) uint8 { return a[pos].Value.AsUint8() }

// Mat4 returns the row-major matrix bound at pos.
func (a Args) Mat4(pos int) [16]float32 { return a[pos].Value.AsMat4() }

// Local returns the scratch size in bytes bound at pos.
func (a Args) Local(pos int) int { return a[pos].Local }
