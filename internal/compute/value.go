package compute

import (
	"encoding/binary"
	"math"
)

// Value is a by-value kernel argument: a scalar or a 4x4 matrix.
// Values are comparable.
type Value struct {
	typ  ValueType
	data [64]byte
}

// Uint32 returns a uint value.
func Uint32(v uint32) Value {
	var x Value
	x.typ = TypeUint32
	binary.LittleEndian.PutUint32(x.data[:], v)
	return x
}

// Float32 returns a float value.
func Float32(v float32) Value {
	var x Value
	x.typ = TypeFloat32
	binary.LittleEndian.PutUint32(x.data[:], math.Float32bits(v))
	return x
}

// Uint8 returns a uchar value.
func Uint8(v uint8) Value {
	var x Value
	x.typ = TypeUint8
	x.data[0] = v
	return x
}

// Bool returns a uchar value of 1 or 0.
func Bool(v bool) Value {
	if v {
		return Uint8(1)
	}
	return Uint8(0)
}

// Mat4 returns a float16 value. m is row-major.
func Mat4(m [16]float32) Value {
	var x Value
	x.typ = TypeMat4
	for i, f := range m {
		binary.LittleEndian.PutUint32(x.data[i*4:], math.Float32bits(f))
	}
	return x
}

// Type returns the value type.
func (v Value) Type() ValueType { return v.typ }

// Bytes returns the little-endian encoding, Type().Size() bytes long.
func (v Value) Bytes() []byte {
	b := make([]byte, v.typ.Size())
	copy(b, v.data[:])
	return b
}

// AsUint32 decodes a TypeUint32 value.
func (v Value) AsUint32() uint32 { return binary.LittleEndian.Uint32(v.data[:]) }

// AsFloat32 decodes a TypeFloat32 value.
func (v Value) AsFloat32() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(v.data[:]))
}

// AsUint8 decodes a TypeUint8 value.
func (v Value) AsUint8() uint8 { return v.data[0] }

// AsMat4 decodes a TypeMat4 value.
func (v Value) AsMat4() [16]float32 {
	var m [16]float32
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(v.data[i*4:]))
	}
	return m
}
