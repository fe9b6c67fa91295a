// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build opencl

package opencl

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/gogpu/flame/internal/compute"
)

type buffer struct {
	dev  *Device
	mem  *cl.MemObject
	name string
	size int
}

var _ compute.DeviceBuffer = (*buffer)(nil)

// NewBuffer implements compute.Device. The buffer is zeroed before use.
func (d *Device) NewBuffer(name string, size int) (compute.DeviceBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("opencl: invalid buffer size %d", size)
	}
	d.mu.Lock()
	mem, err := d.context.CreateEmptyBuffer(cl.MemReadWrite, size)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("opencl: creating buffer %q: %s", name, errorName(err))
	}
	b := &buffer{dev: d, mem: mem, name: name, size: size}
	if err := b.Write(0, make([]byte, size)); err != nil {
		mem.Release()
		return nil, err
	}
	return b, nil
}

func (b *buffer) Size() int { return b.size }

func (b *buffer) Write(offset int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	ev, err := b.dev.queue.EnqueueWriteBuffer(b.mem, true, offset, len(data), unsafe.Pointer(&data[0]), nil)
	if err != nil {
		return fmt.Errorf("opencl: write %q: %s", b.name, errorName(err))
	}
	release(ev)
	return nil
}

func (b *buffer) Read(offset int, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	ev, err := b.dev.queue.EnqueueReadBuffer(b.mem, true, offset, len(dst), unsafe.Pointer(&dst[0]), nil)
	if err != nil {
		return fmt.Errorf("opencl: read %q: %s", b.name, errorName(err))
	}
	release(ev)
	return nil
}

// Fill writes word into every whole word of the buffer.
func (b *buffer) Fill(word uint32) error {
	data := make([]byte, b.size)
	if word != 0 {
		for i := 0; i+4 <= len(data); i += 4 {
			binary.LittleEndian.PutUint32(data[i:], word)
		}
	}
	return b.Write(0, data)
}

func (b *buffer) Release() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.mem != nil {
		b.mem.Release()
		b.mem = nil
	}
}

func release(ev *cl.Event) {
	if ev != nil {
		ev.Release()
	}
}
