package compute

// WorkgroupSize is the local work size of every kernel. Global sizes are
// rounded up to a multiple of it.
const WorkgroupSize = 64

// Device is a compute backend: it owns device memory and compiled kernels.
type Device interface {
	// Name identifies the device in logs and stats.
	Name() string

	// NewBuffer allocates a zero-filled buffer of size bytes.
	NewBuffer(name string, size int) (DeviceBuffer, error)

	// NewKernel compiles the kernel described by spec.
	NewKernel(spec KernelSpec) (DeviceKernel, error)

	// Close releases the device.
	Close() error
}

// DeviceBuffer is device memory. Offsets and sizes are in bytes.
type DeviceBuffer interface {
	Size() int
	Write(offset int, data []byte) error
	Read(offset int, dst []byte) error

	// Fill sets every 32-bit word to word.
	Fill(word uint32) error

	Release()
}

// BufferCopier is implemented by buffers that can copy device-side.
// Context.CopyBuffer falls back to a host round trip otherwise.
type BufferCopier interface {
	CopyTo(dst DeviceBuffer, size int) error
}

// DeviceKernel is a compiled kernel.
type DeviceKernel interface {
	// Dispatch runs global work-items in groups of WorkgroupSize and
	// returns once they have all finished. args has one entry per
	// declared argument position.
	Dispatch(global int, args []BoundArg) error

	Release()
}

// RoundUp returns n rounded up to a multiple of WorkgroupSize.
func RoundUp(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + WorkgroupSize - 1) / WorkgroupSize * WorkgroupSize
}
