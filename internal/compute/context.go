// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package compute is the dispatch layer between a flame session and a
// compute device. A Context owns named buffers and kernels, tracks each
// kernel's argument bindings and global size, and dispatches synchronously.
//
// Bindings are plain values, so a kernel's configuration can be saved with
// Checkpoint, modified for a one-off dispatch and put back with Restore.
//
// A Context is not safe for concurrent use.
package compute

import (
	"errors"
	"fmt"
	"time"
)

// BufferHandle identifies a buffer within its Context. The zero value is
// invalid.
type BufferHandle int

// KernelHandle identifies a kernel within its Context. The zero value is
// invalid.
type KernelHandle int

// DefaultTimingHistory is the number of dispatch durations kept per kernel.
const DefaultTimingHistory = 300

type bufferEntry struct {
	name string
	buf  DeviceBuffer
	size int
}

type kernelEntry struct {
	spec  KernelSpec
	dev   DeviceKernel
	state KernelState

	timings []time.Duration // ring buffer
	next    int
	count   int
}

// Option configures a Context.
type Option func(*Context)

// WithMemoryBudget limits the total buffer size in bytes. 0 disables the
// limit.
func WithMemoryBudget(bytes uint64) Option {
	return func(c *Context) { c.budgetBytes = bytes }
}

// WithTimingHistory sets how many dispatch durations are kept per kernel.
func WithTimingHistory(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.history = n
		}
	}
}

// Context is the dispatch layer over one Device.
type Context struct {
	dev Device

	buffers     []*bufferEntry // handle-1 -> entry, nil once deleted
	bufferNames map[string]BufferHandle

	kernels     []*kernelEntry
	kernelNames map[string]KernelHandle

	budgetBytes uint64
	usedBytes   uint64
	history     int

	closed bool
}

// NewContext returns a Context dispatching on dev. The Context takes
// ownership of dev and closes it in Close.
func NewContext(dev Device, opts ...Option) *Context {
	c := &Context{
		dev:         dev,
		bufferNames: make(map[string]BufferHandle),
		kernelNames: make(map[string]KernelHandle),
		history:     DefaultTimingHistory,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Device returns the underlying device.
func (c *Context) Device() Device { return c.dev }

// Close releases every buffer and kernel, then the device.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, k := range c.kernels {
		k.dev.Release()
	}
	for _, b := range c.buffers {
		if b != nil {
			b.buf.Release()
		}
	}
	c.buffers = nil
	c.kernels = nil
	c.usedBytes = 0
	return c.dev.Close()
}

// =============================================================================
// Buffers
// =============================================================================

// CreateBuffer allocates a zero-filled buffer. Creating a buffer under an
// existing name replaces the old buffer and keeps its handle, so kernels
// bound to the name see the new memory.
func (c *Context) CreateBuffer(name string, size int) (BufferHandle, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if size <= 0 {
		return 0, &BufferError{Op: "create", Buffer: name, Err: fmt.Errorf("invalid size %d", size)}
	}

	h, exists := c.bufferNames[name]
	old := 0
	if exists {
		old = c.buffers[h-1].size
	}
	if err := c.reserve(name, old, size); err != nil {
		slogger().Warn("compute: buffer over budget", "buffer", name, "size", size, "err", err)
		return 0, &BufferError{Op: "create", Buffer: name, Err: err}
	}

	buf, err := c.dev.NewBuffer(name, size)
	if err != nil {
		slogger().Warn("compute: failed to create buffer", "buffer", name, "size", size, "err", err)
		return 0, &BufferError{Op: "create", Buffer: name, Err: err}
	}

	//nolint:gosec // G115: sizes are positive
	c.usedBytes = c.usedBytes - uint64(old) + uint64(size)
	if exists {
		c.buffers[h-1].buf.Release()
		c.buffers[h-1] = &bufferEntry{name: name, buf: buf, size: size}
	} else {
		c.buffers = append(c.buffers, &bufferEntry{name: name, buf: buf, size: size})
		h = BufferHandle(len(c.buffers))
		c.bufferNames[name] = h
	}
	slogger().Debug("compute: buffer created", "buffer", name, "size", size, "handle", int(h))
	return h, nil
}

// Buffer looks up a buffer by name.
func (c *Context) Buffer(name string) (BufferHandle, bool) {
	h, ok := c.bufferNames[name]
	return h, ok
}

// BufferName returns the name of h, or "" for an unknown handle.
func (c *Context) BufferName(h BufferHandle) string {
	if b := c.buffer(h); b != nil {
		return b.name
	}
	return ""
}

// BufferSize returns the size of h in bytes, or 0 for an unknown handle.
func (c *Context) BufferSize(h BufferHandle) int {
	if b := c.buffer(h); b != nil {
		return b.size
	}
	return 0
}

func (c *Context) buffer(h BufferHandle) *bufferEntry {
	if h <= 0 || int(h) > len(c.buffers) {
		return nil
	}
	return c.buffers[h-1]
}

func (c *Context) lookupBuffer(op string, h BufferHandle) (*bufferEntry, error) {
	b := c.buffer(h)
	if b == nil {
		err := &BufferError{Op: op, Buffer: fmt.Sprintf("#%d", h), Err: ErrUnknownBuffer}
		slogger().Warn("compute: unknown buffer", "op", op, "handle", int(h))
		return nil, err
	}
	return b, nil
}

func checkRange(b *bufferEntry, op string, offset, n int) error {
	if offset < 0 || n < 0 || offset+n > b.size {
		return &BufferError{Op: op, Buffer: b.name,
			Err: fmt.Errorf("%w: [%d, %d) of %d", ErrBufferRange, offset, offset+n, b.size)}
	}
	return nil
}

// WriteBuffer copies data into h at offset, blocking until done.
func (c *Context) WriteBuffer(h BufferHandle, offset int, data []byte) error {
	b, err := c.lookupBuffer("write", h)
	if err != nil {
		return err
	}
	if err := checkRange(b, "write", offset, len(data)); err != nil {
		return err
	}
	if err := b.buf.Write(offset, data); err != nil {
		slogger().Warn("compute: buffer write failed", "buffer", b.name, "err", err)
		return &BufferError{Op: "write", Buffer: b.name, Err: err}
	}
	return nil
}

// ReadBuffer copies len(dst) bytes from h at offset, blocking until done.
func (c *Context) ReadBuffer(h BufferHandle, offset int, dst []byte) error {
	b, err := c.lookupBuffer("read", h)
	if err != nil {
		return err
	}
	if err := checkRange(b, "read", offset, len(dst)); err != nil {
		return err
	}
	if err := b.buf.Read(offset, dst); err != nil {
		slogger().Warn("compute: buffer read failed", "buffer", b.name, "err", err)
		return &BufferError{Op: "read", Buffer: b.name, Err: err}
	}
	return nil
}

// FillBuffer sets every 32-bit word of h to word.
func (c *Context) FillBuffer(h BufferHandle, word uint32) error {
	b, err := c.lookupBuffer("fill", h)
	if err != nil {
		return err
	}
	if err := b.buf.Fill(word); err != nil {
		slogger().Warn("compute: buffer fill failed", "buffer", b.name, "err", err)
		return &BufferError{Op: "fill", Buffer: b.name, Err: err}
	}
	return nil
}

// CopyBuffer copies the first size bytes of src into dst.
func (c *Context) CopyBuffer(src, dst BufferHandle, size int) error {
	s, err := c.lookupBuffer("copy", src)
	if err != nil {
		return err
	}
	d, err := c.lookupBuffer("copy", dst)
	if err != nil {
		return err
	}
	if err := checkRange(s, "copy", 0, size); err != nil {
		return err
	}
	if err := checkRange(d, "copy", 0, size); err != nil {
		return err
	}

	if cp, ok := s.buf.(BufferCopier); ok {
		err = cp.CopyTo(d.buf, size)
	} else {
		tmp := make([]byte, size)
		if err = s.buf.Read(0, tmp); err == nil {
			err = d.buf.Write(0, tmp)
		}
	}
	if err != nil {
		slogger().Warn("compute: buffer copy failed", "src", s.name, "dst", d.name, "err", err)
		return &BufferError{Op: "copy", Buffer: s.name, Err: err}
	}
	return nil
}

// DeleteBuffer releases h. Kernels still bound to it fail at dispatch.
func (c *Context) DeleteBuffer(h BufferHandle) error {
	b, err := c.lookupBuffer("delete", h)
	if err != nil {
		return err
	}
	b.buf.Release()
	//nolint:gosec // G115: size is positive
	c.usedBytes -= uint64(b.size)
	delete(c.bufferNames, b.name)
	c.buffers[h-1] = nil
	return nil
}

// =============================================================================
// Kernels
// =============================================================================

// CreateKernel compiles spec on the device. Kernel names are unique.
func (c *Context) CreateKernel(spec KernelSpec) (KernelHandle, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if _, exists := c.kernelNames[spec.Name]; exists {
		return 0, fmt.Errorf("compute: kernel %q already exists", spec.Name)
	}
	dk, err := c.dev.NewKernel(spec)
	if err != nil {
		slogger().Warn("compute: failed to create kernel", "kernel", spec.Name, "err", err)
		return 0, fmt.Errorf("create kernel %q: %w", spec.Name, err)
	}
	c.kernels = append(c.kernels, &kernelEntry{
		spec:    spec,
		dev:     dk,
		state:   KernelState{Args: make([]Arg, len(spec.Args))},
		timings: make([]time.Duration, c.history),
	})
	h := KernelHandle(len(c.kernels))
	c.kernelNames[spec.Name] = h
	slogger().Debug("compute: kernel created", "kernel", spec.Name, "args", len(spec.Args))
	return h, nil
}

// Kernel looks up a kernel by name.
func (c *Context) Kernel(name string) (KernelHandle, bool) {
	h, ok := c.kernelNames[name]
	return h, ok
}

// Kernels returns every kernel handle in creation order.
func (c *Context) Kernels() []KernelHandle {
	hs := make([]KernelHandle, len(c.kernels))
	for i := range hs {
		hs[i] = KernelHandle(i + 1)
	}
	return hs
}

// KernelName returns the name of k, or "" for an unknown handle.
func (c *Context) KernelName(k KernelHandle) string {
	if e := c.kernel(k); e != nil {
		return e.spec.Name
	}
	return ""
}

func (c *Context) kernel(k KernelHandle) *kernelEntry {
	if k <= 0 || int(k) > len(c.kernels) {
		return nil
	}
	return c.kernels[k-1]
}

func (c *Context) argError(k KernelHandle, pos int, buffer string, err error) error {
	name := fmt.Sprintf("#%d", k)
	if e := c.kernel(k); e != nil {
		name = e.spec.Name
	}
	slogger().Warn("compute: failed to bind kernel argument",
		"kernel", name, "pos", pos, "buffer", buffer, "err", err)
	return &ArgError{Kernel: name, Pos: pos, Buffer: buffer, Err: err}
}

func (c *Context) checkArg(k KernelHandle, pos int, kind ArgKind) (*kernelEntry, error) {
	e := c.kernel(k)
	if e == nil {
		return nil, ErrUnknownKernel
	}
	if pos < 0 || pos >= len(e.spec.Args) {
		return nil, ErrArgOutOfRange
	}
	if e.spec.Args[pos].Kind != kind {
		return nil, fmt.Errorf("%w: position is %s, got %s", ErrArgKind, e.spec.Args[pos].Kind, kind)
	}
	return e, nil
}

// BindBuffer binds bufs to consecutive argument positions starting at pos.
// Nothing is bound if any position fails.
func (c *Context) BindBuffer(k KernelHandle, pos int, bufs ...BufferHandle) error {
	for i, h := range bufs {
		bufName := c.BufferName(h)
		if _, err := c.checkArg(k, pos+i, ArgBuffer); err != nil {
			return c.argError(k, pos+i, bufName, err)
		}
		if c.buffer(h) == nil {
			return c.argError(k, pos+i, fmt.Sprintf("#%d", h), ErrUnknownBuffer)
		}
	}
	e := c.kernel(k)
	if e == nil {
		return c.argError(k, pos, "", ErrUnknownKernel)
	}
	for i, h := range bufs {
		e.state.Args[pos+i] = Arg{Bound: true, Buffer: h}
	}
	return nil
}

// BindValue binds a by-value argument. The value type must match the
// declared type.
func (c *Context) BindValue(k KernelHandle, pos int, v Value) error {
	e, err := c.checkArg(k, pos, ArgValue)
	if err != nil {
		return c.argError(k, pos, "", err)
	}
	if want := e.spec.Args[pos].Type; v.Type() != want {
		return c.argError(k, pos, "", fmt.Errorf("%w: want %s, got %s", ErrArgKind, want, v.Type()))
	}
	e.state.Args[pos] = Arg{Bound: true, Value: v}
	return nil
}

// BindLocal binds a work-group scratch argument of size bytes.
func (c *Context) BindLocal(k KernelHandle, pos int, size int) error {
	e, err := c.checkArg(k, pos, ArgLocal)
	if err != nil {
		return c.argError(k, pos, "", err)
	}
	e.state.Args[pos] = Arg{Bound: true, Local: size}
	return nil
}

// Resize sets the global work size of k to elements rounded up to a
// multiple of WorkgroupSize.
func (c *Context) Resize(k KernelHandle, elements int) error {
	e := c.kernel(k)
	if e == nil {
		return c.argError(k, -1, "", ErrUnknownKernel)
	}
	e.state.Global = RoundUp(elements)
	return nil
}

// Global returns the global work size of k.
func (c *Context) Global(k KernelHandle) int {
	if e := c.kernel(k); e != nil {
		return e.state.Global
	}
	return 0
}

// Dispatch runs k over its global range and blocks until it completes.
// A zero global size dispatches nothing.
func (c *Context) Dispatch(k KernelHandle) error {
	if c.closed {
		return ErrClosed
	}
	e := c.kernel(k)
	if e == nil {
		return c.argError(k, -1, "", ErrUnknownKernel)
	}

	args := make([]BoundArg, len(e.spec.Args))
	for i, a := range e.state.Args {
		spec := e.spec.Args[i]
		if !a.Bound {
			return &ArgError{Kernel: e.spec.Name, Pos: i, Err: ErrArgUnbound}
		}
		args[i] = BoundArg{Kind: spec.Kind, Value: a.Value, Local: a.Local}
		if spec.Kind == ArgBuffer {
			b := c.buffer(a.Buffer)
			if b == nil {
				return &ArgError{Kernel: e.spec.Name, Pos: i, Buffer: fmt.Sprintf("#%d", a.Buffer), Err: ErrUnknownBuffer}
			}
			args[i].Buffer = b.buf
		}
	}

	if e.state.Global == 0 {
		return nil
	}

	start := time.Now()
	if err := e.dev.Dispatch(e.state.Global, args); err != nil {
		slogger().Warn("compute: dispatch failed", "kernel", e.spec.Name, "global", e.state.Global, "err", err)
		return fmt.Errorf("dispatch %q: %w", e.spec.Name, err)
	}
	d := time.Since(start)
	e.record(d)
	slogger().Debug("compute: dispatched", "kernel", e.spec.Name, "global", e.state.Global, "duration", d)
	return nil
}

func (e *kernelEntry) record(d time.Duration) {
	if len(e.timings) == 0 {
		return
	}
	e.timings[e.next] = d
	e.next = (e.next + 1) % len(e.timings)
	if e.count < len(e.timings) {
		e.count++
	}
}

// Timings returns the recorded dispatch durations of k, oldest first.
func (c *Context) Timings(k KernelHandle) []time.Duration {
	e := c.kernel(k)
	if e == nil || e.count == 0 {
		return nil
	}
	out := make([]time.Duration, 0, e.count)
	start := (e.next - e.count + len(e.timings)) % len(e.timings)
	for i := range e.count {
		out = append(out, e.timings[(start+i)%len(e.timings)])
	}
	return out
}

// MeanTime returns the mean recorded dispatch duration of k.
func (c *Context) MeanTime(k KernelHandle) time.Duration {
	ts := c.Timings(k)
	if len(ts) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ts {
		sum += d
	}
	return sum / time.Duration(len(ts))
}

// Checkpoint returns a snapshot of k's bindings and global size.
func (c *Context) Checkpoint(k KernelHandle) (KernelState, error) {
	e := c.kernel(k)
	if e == nil {
		return KernelState{}, &ArgError{Kernel: fmt.Sprintf("#%d", k), Pos: -1, Err: ErrUnknownKernel}
	}
	return e.state.clone(), nil
}

// Restore puts a snapshot taken by Checkpoint back on k.
func (c *Context) Restore(k KernelHandle, s KernelState) error {
	e := c.kernel(k)
	if e == nil {
		return &ArgError{Kernel: fmt.Sprintf("#%d", k), Pos: -1, Err: ErrUnknownKernel}
	}
	if len(s.Args) != len(e.spec.Args) {
		return &ArgError{Kernel: e.spec.Name, Pos: len(s.Args),
			Err: errors.Join(ErrArgOutOfRange, fmt.Errorf("snapshot has %d args, kernel has %d", len(s.Args), len(e.spec.Args)))}
	}
	e.state = s.clone()
	return nil
}
