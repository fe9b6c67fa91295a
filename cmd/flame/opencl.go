//go:build opencl

package main

import _ "github.com/gogpu/flame/opencl"
