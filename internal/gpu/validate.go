// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/naga"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// Validate compiles every source of the program to SPIR-V, reporting the
// first kernel that fails.
func Validate(prog Program) error {
	for name, src := range prog {
		spirv, err := naga.Compile(src)
		if err != nil {
			return fmt.Errorf("gpu: compile %q: %w", name, err)
		}
		if len(spirv) < 4 {
			return fmt.Errorf("gpu: compile %q: empty module", name)
		}
		magic := uint32(spirv[0]) | uint32(spirv[1])<<8 | uint32(spirv[2])<<16 | uint32(spirv[3])<<24
		if magic != spirvMagic {
			return fmt.Errorf("gpu: compile %q: bad SPIR-V magic %#x", name, magic)
		}
	}
	return nil
}
