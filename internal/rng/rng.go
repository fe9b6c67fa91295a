// Package rng implements the stateless hash generator shared by every
// flame kernel.
//
// The generator is a PCG-style permutation of a 32-bit state word. The same
// arithmetic is written in the WGSL and OpenCL kernel sources, so a CPU run
// and a device run seeded identically walk the same sequence (up to float
// rounding in the conversion).
package rng

import "math"

const (
	multiplier uint32 = 747796405
	increment  uint32 = 2891336453
	mix        uint32 = 277803737
)

// maxWord is UINT_MAX as the kernels see it after conversion to float.
const maxWord = float32(math.MaxUint32)

// Next advances seed and returns a value in [0, 1].
//
// The upper bound is reachable: float32(MaxUint32) rounds to 2^32, so large
// words land on exactly 1. Callers that index by the result must clamp.
func Next(seed *uint32) float32 {
	state := *seed
	*seed = *seed*multiplier + increment
	word := ((state >> ((state >> 28) + 4)) ^ state) * mix
	return float32((word>>22)^word) / maxWord
}

// Hash returns the raw permuted word for state without advancing anything.
func Hash(state uint32) uint32 {
	word := ((state >> ((state >> 28) + 4)) ^ state) * mix
	return (word >> 22) ^ word
}

// Seed derives the per work-item seed from its global index and the
// dispatch counters, decorrelated by one Next call.
func Seed(index, frame, samples uint32) uint32 {
	s := index + frame*samples
	Next(&s)
	return s
}
