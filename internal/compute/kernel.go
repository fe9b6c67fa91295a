package compute

import "fmt"

// ArgKind is how a kernel argument is passed.
type ArgKind uint8

const (
	// ArgBuffer is a global memory buffer.
	ArgBuffer ArgKind = iota
	// ArgValue is a scalar or matrix passed by value.
	ArgValue
	// ArgLocal is per work-group scratch memory of a bound size.
	ArgLocal
)

func (k ArgKind) String() string {
	switch k {
	case ArgBuffer:
		return "buffer"
	case ArgValue:
		return "value"
	case ArgLocal:
		return "local"
	default:
		return fmt.Sprintf("ArgKind(%d)", k)
	}
}

// Access is the kernel's use of a buffer argument.
type Access uint8

const (
	ReadOnly Access = iota
	ReadWrite
)

// ValueType is the type of an ArgValue argument.
type ValueType uint8

const (
	TypeNone ValueType = iota
	TypeUint32
	TypeFloat32
	TypeUint8
	TypeMat4
)

// Size returns the encoded size in bytes.
func (t ValueType) Size() int {
	switch t {
	case TypeUint32, TypeFloat32:
		return 4
	case TypeUint8:
		return 1
	case TypeMat4:
		return 64
	default:
		return 0
	}
}

func (t ValueType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeUint32:
		return "uint"
	case TypeFloat32:
		return "float"
	case TypeUint8:
		return "uchar"
	case TypeMat4:
		return "float16"
	default:
		return fmt.Sprintf("ValueType(%d)", t)
	}
}

// ArgSpec declares one kernel argument position.
type ArgSpec struct {
	Name   string
	Kind   ArgKind
	Access Access    // ArgBuffer only
	Type   ValueType // ArgValue only
}

// KernelSpec declares a kernel: its entry point name and its positional
// arguments. Devices use it to build pipelines and pack values.
type KernelSpec struct {
	Name string
	Args []ArgSpec
}

// Arg is the binding of one argument position.
type Arg struct {
	Bound  bool
	Buffer BufferHandle // ArgBuffer
	Value  Value        // ArgValue
	Local  int          // ArgLocal, bytes
}

// KernelState is a value snapshot of a kernel's bindings and global size.
type KernelState struct {
	Global int
	Args   []Arg
}

// Equal reports whether two snapshots are identical.
func (s KernelState) Equal(o KernelState) bool {
	if s.Global != o.Global || len(s.Args) != len(o.Args) {
		return false
	}
	for i := range s.Args {
		if s.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

func (s KernelState) clone() KernelState {
	return KernelState{Global: s.Global, Args: append([]Arg(nil), s.Args...)}
}

// BoundArg is a resolved argument handed to a device at dispatch.
type BoundArg struct {
	Kind   ArgKind
	Buffer DeviceBuffer
	Value  Value
	Local  int
}
