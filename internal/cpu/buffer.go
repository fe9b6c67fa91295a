package cpu

import (
	"encoding/binary"

	"github.com/gogpu/flame/internal/compute"
)

// Buffer is host memory addressed as little-endian 32-bit words.
type Buffer struct {
	words []uint32
	size  int
}

var (
	_ compute.DeviceBuffer = (*Buffer)(nil)
	_ compute.BufferCopier = (*Buffer)(nil)
)

func newBuffer(size int) *Buffer {
	return &Buffer{words: make([]uint32, (size+3)/4), size: size}
}

// Words exposes the backing words to kernels.
func (b *Buffer) Words() []uint32 { return b.words }

// Size implements compute.DeviceBuffer.
func (b *Buffer) Size() int { return b.size }

// Write implements compute.DeviceBuffer.
func (b *Buffer) Write(offset int, data []byte) error {
	if offset%4 == 0 && len(data)%4 == 0 {
		w := b.words[offset/4:]
		for i := range len(data) / 4 {
			w[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		return nil
	}
	for j, v := range data {
		pos := offset + j
		shift := uint(pos%4) * 8
		w := &b.words[pos/4]
		*w = *w&^(0xff<<shift) | uint32(v)<<shift
	}
	return nil
}

// Read implements compute.DeviceBuffer.
func (b *Buffer) Read(offset int, dst []byte) error {
	if offset%4 == 0 && len(dst)%4 == 0 {
		w := b.words[offset/4:]
		for i := range len(dst) / 4 {
			binary.LittleEndian.PutUint32(dst[i*4:], w[i])
		}
		return nil
	}
	for j := range dst {
		pos := offset + j
		dst[j] = byte(b.words[pos/4] >> (uint(pos%4) * 8))
	}
	return nil
}

// Fill implements compute.DeviceBuffer.
func (b *Buffer) Fill(word uint32) error {
	for i := range b.words {
		b.words[i] = word
	}
	return nil
}

// CopyTo implements compute.BufferCopier for CPU destinations and falls
// back to a byte copy otherwise.
func (b *Buffer) CopyTo(dst compute.DeviceBuffer, size int) error {
	if d, ok := dst.(*Buffer); ok && size%4 == 0 {
		copy(d.words[:size/4], b.words)
		return nil
	}
	tmp := make([]byte, size)
	if err := b.Read(0, tmp); err != nil {
		return err
	}
	return dst.Write(0, tmp)
}

// Release implements compute.DeviceBuffer.
func (b *Buffer) Release() { b.words = nil }
