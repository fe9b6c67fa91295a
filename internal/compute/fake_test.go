package compute

import (
	"encoding/binary"
	"errors"
)

// fakeDevice is an in-memory Device recording dispatches.
type fakeDevice struct {
	closed     bool
	dispatches []fakeDispatch
	failKernel bool
	failBuffer bool
}

type fakeDispatch struct {
	kernel string
	global int
	args   []BoundArg
}

type fakeBuffer struct {
	data     []byte
	released bool
}

type fakeKernel struct {
	dev      *fakeDevice
	name     string
	released bool
}

func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) NewBuffer(_ string, size int) (DeviceBuffer, error) {
	if d.failBuffer {
		return nil, errors.New("out of device memory")
	}
	return &fakeBuffer{data: make([]byte, size)}, nil
}

func (d *fakeDevice) NewKernel(spec KernelSpec) (DeviceKernel, error) {
	if d.failKernel {
		return nil, ErrBuild
	}
	return &fakeKernel{dev: d, name: spec.Name}, nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

func (b *fakeBuffer) Size() int { return len(b.data) }

func (b *fakeBuffer) Write(offset int, data []byte) error {
	copy(b.data[offset:], data)
	return nil
}

func (b *fakeBuffer) Read(offset int, dst []byte) error {
	copy(dst, b.data[offset:])
	return nil
}

func (b *fakeBuffer) Fill(word uint32) error {
	for i := 0; i+4 <= len(b.data); i += 4 {
		binary.LittleEndian.PutUint32(b.data[i:], word)
	}
	return nil
}

func (b *fakeBuffer) Release() { b.released = true }

func (k *fakeKernel) Dispatch(global int, args []BoundArg) error {
	k.dev.dispatches = append(k.dev.dispatches, fakeDispatch{kernel: k.name, global: global, args: args})
	return nil
}

func (k *fakeKernel) Release() { k.released = true }

// testSpec has one buffer, two values and a local argument.
var testSpec = KernelSpec{
	Name: "produce",
	Args: []ArgSpec{
		{Name: "texture", Kind: ArgBuffer, Access: ReadWrite},
		{Name: "count", Kind: ArgValue, Type: TypeUint32},
		{Name: "view", Kind: ArgValue, Type: TypeMat4},
		{Name: "scratch", Kind: ArgLocal},
	},
}
