// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build opencl

package opencl

import (
	"fmt"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/gogpu/flame/internal/compute"
)

type kernel struct {
	dev  *Device
	k    *cl.Kernel
	spec compute.KernelSpec
}

var _ compute.DeviceKernel = (*kernel)(nil)

// Dispatch sets every argument and enqueues global work items (rounded up
// to whole workgroups), then waits for the queue to drain.
func (k *kernel) Dispatch(global int, args []compute.BoundArg) error {
	k.dev.mu.Lock()
	defer k.dev.mu.Unlock()

	for pos, a := range args {
		if err := k.setArg(pos, a); err != nil {
			return fmt.Errorf("opencl: kernel %q arg %d: %s", k.spec.Name, pos, errorName(err))
		}
	}
	ev, err := k.dev.queue.EnqueueNDRangeKernel(k.k, nil,
		[]int{compute.RoundUp(global)}, []int{compute.WorkgroupSize}, nil)
	if err != nil {
		return fmt.Errorf("opencl: enqueue %q: %s", k.spec.Name, errorName(err))
	}
	release(ev)
	if err := k.dev.queue.Finish(); err != nil {
		return fmt.Errorf("opencl: finish %q: %s", k.spec.Name, errorName(err))
	}
	return nil
}

func (k *kernel) setArg(pos int, a compute.BoundArg) error {
	switch a.Kind {
	case compute.ArgBuffer:
		b, ok := a.Buffer.(*buffer)
		if !ok {
			return compute.ErrArgKind
		}
		return k.k.SetArgBuffer(pos, b.mem)
	case compute.ArgLocal:
		return k.k.SetArgLocal(pos, a.Local)
	}
	switch a.Value.Type() {
	case compute.TypeUint32:
		return k.k.SetArgUint32(pos, a.Value.AsUint32())
	case compute.TypeFloat32:
		return k.k.SetArgFloat32(pos, a.Value.AsFloat32())
	case compute.TypeUint8:
		return k.k.SetArgUint8(pos, a.Value.AsUint8())
	case compute.TypeMat4:
		m := a.Value.AsMat4()
		return k.k.SetArgUnsafe(pos, int(unsafe.Sizeof(m)), unsafe.Pointer(&m))
	default:
		return compute.ErrArgKind
	}
}

func (k *kernel) Release() {
	k.dev.mu.Lock()
	defer k.dev.mu.Unlock()
	if k.k != nil {
		k.k.Release()
		k.k = nil
	}
}
