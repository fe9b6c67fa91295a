// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/flame/internal/compute"
)

// buffer is a storage buffer. Its allocation is rounded up to a multiple of
// 4 bytes, the copy alignment of WebGPU.
type buffer struct {
	dev   *Device
	buf   hal.Buffer
	label string
	size  int
	alloc uint64
}

var (
	_ compute.DeviceBuffer = (*buffer)(nil)
	_ compute.BufferCopier = (*buffer)(nil)
)

func align4(n int) uint64 {
	//nolint:gosec // G115: n is a validated positive size
	return (uint64(n) + 3) &^ 3
}

// NewBuffer implements compute.Device.
func (d *Device) NewBuffer(name string, size int) (compute.DeviceBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("gpu: invalid buffer size %d", size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	alloc := align4(size)
	hb, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: name,
		Size:  alloc,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create buffer %q: %w", name, err)
	}
	b := &buffer{dev: d, buf: hb, label: name, size: size, alloc: alloc}
	if err := b.clearLocked(); err != nil {
		d.device.DestroyBuffer(hb)
		return nil, err
	}
	slogger().Debug("gpu: buffer created", "buffer", name, "size", size)
	return b, nil
}

func (b *buffer) Size() int { return b.size }

func (b *buffer) clearLocked() error {
	return b.dev.submit("clear_"+b.label, func(enc hal.CommandEncoder) {
		enc.ClearBuffer(b.buf, 0, b.alloc)
	})
}

// Write uploads data at offset. Unaligned ranges are widened to whole
// words by reading back the neighbouring bytes first.
func (b *buffer) Write(offset int, data []byte) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if offset%4 == 0 && len(data)%4 == 0 {
		//nolint:gosec // G115: offset validated by compute.Context
		return b.dev.queue.WriteBuffer(b.buf, uint64(offset), data)
	}

	lo := offset &^ 3
	hi := int(align4(offset + len(data)))
	//nolint:gosec // G115: bounds validated above
	if uint64(hi) > b.alloc {
		return fmt.Errorf("gpu: write past end of %q", b.label)
	}
	tmp := make([]byte, hi-lo)
	if err := b.readLocked(lo, tmp); err != nil {
		return err
	}
	copy(tmp[offset-lo:], data)
	//nolint:gosec // G115: lo is non-negative
	return b.dev.queue.WriteBuffer(b.buf, uint64(lo), tmp)
}

// Read downloads len(dst) bytes from offset through a staging buffer.
func (b *buffer) Read(offset int, dst []byte) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	lo := offset &^ 3
	hi := int(align4(offset + len(dst)))
	tmp := make([]byte, hi-lo)
	if err := b.readLocked(lo, tmp); err != nil {
		return err
	}
	copy(dst, tmp[offset-lo:])
	return nil
}

// readLocked reads a 4-aligned range through a cached staging buffer of
// the same size. len(dst) must be a multiple of 4.
func (b *buffer) readLocked(offset int, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	d := b.dev
	size := uint64(len(dst))
	staging, err := d.staging.GetOrCreate(size, func() (hal.Buffer, error) {
		return d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("staging_%d", size),
			Size:  size,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
	})
	if err != nil {
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}

	err = d.submit("readback_"+b.label, func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{
			//nolint:gosec // G115: offset is non-negative
			{SrcOffset: uint64(offset), DstOffset: 0, Size: size},
		})
	})
	if err != nil {
		return fmt.Errorf("gpu: readback %q: %w", b.label, err)
	}

	mapping, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	copy(dst, unsafe.Slice((*byte)(mapping.Ptr), len(dst)))
	return d.device.UnmapBuffer(staging)
}

// Fill sets every word to word. Zero uses a GPU clear.
func (b *buffer) Fill(word uint32) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if word == 0 {
		return b.clearLocked()
	}
	data := make([]byte, b.alloc)
	for i := 0; i+4 <= len(data); i += 4 {
		binary.LittleEndian.PutUint32(data[i:], word)
	}
	return b.dev.queue.WriteBuffer(b.buf, 0, data)
}

// CopyTo copies on the GPU when dst lives on the same device.
func (b *buffer) CopyTo(dst compute.DeviceBuffer, size int) error {
	other, ok := dst.(*buffer)
	if !ok || other.dev != b.dev || size%4 != 0 {
		tmp := make([]byte, size)
		if err := b.Read(0, tmp); err != nil {
			return err
		}
		return dst.Write(0, tmp)
	}
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return b.dev.submit("copy_"+b.label, func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(b.buf, other.buf, []hal.BufferCopy{
			//nolint:gosec // G115: size validated by compute.Context
			{Size: uint64(size)},
		})
	})
}

// Release destroys the buffer.
func (b *buffer) Release() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.buf != nil && b.dev.device != nil {
		b.dev.device.DestroyBuffer(b.buf)
	}
	b.buf = nil
}
