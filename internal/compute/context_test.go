package compute

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestContext(t *testing.T, opts ...Option) (*Context, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{}
	c := NewContext(dev, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, dev
}

func bindAll(t *testing.T, c *Context, k KernelHandle, buf BufferHandle) {
	t.Helper()
	if err := c.BindBuffer(k, 0, buf); err != nil {
		t.Fatalf("BindBuffer: %v", err)
	}
	if err := c.BindValue(k, 1, Uint32(7)); err != nil {
		t.Fatalf("BindValue: %v", err)
	}
	if err := c.BindValue(k, 2, Mat4([16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1})); err != nil {
		t.Fatalf("BindValue mat: %v", err)
	}
	if err := c.BindLocal(k, 3, 256); err != nil {
		t.Fatalf("BindLocal: %v", err)
	}
}

// =============================================================================
// Buffer Tests
// =============================================================================

func TestCreateBuffer_ZeroFilled(t *testing.T) {
	c, _ := newTestContext(t)
	h, err := c.CreateBuffer("tex", 64)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	got := make([]byte, 64)
	if err := c.ReadBuffer(h, 0, got); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if !bytes.Equal(got, make([]byte, 64)) {
		t.Error("new buffer is not zero-filled")
	}
	if c.BufferSize(h) != 64 || c.BufferName(h) != "tex" {
		t.Errorf("BufferSize/BufferName = %d/%q, want 64/tex", c.BufferSize(h), c.BufferName(h))
	}
}

func TestCreateBuffer_ReplaceKeepsHandle(t *testing.T) {
	c, _ := newTestContext(t)
	h1, _ := c.CreateBuffer("tex", 16)
	if err := c.WriteBuffer(h1, 0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	h2, err := c.CreateBuffer("tex", 32)
	if err != nil {
		t.Fatalf("CreateBuffer replace: %v", err)
	}
	if h1 != h2 {
		t.Errorf("replacement handle = %d, want %d", h2, h1)
	}
	if c.BufferSize(h2) != 32 {
		t.Errorf("BufferSize = %d, want 32", c.BufferSize(h2))
	}
	got := make([]byte, 4)
	_ = c.ReadBuffer(h2, 0, got)
	if !bytes.Equal(got, []byte{0, 0, 0, 0}) {
		t.Errorf("replacement contents = %v, want zeros", got)
	}
	if s := c.MemoryStats(); s.UsedBytes != 32 || s.BufferCount != 1 {
		t.Errorf("MemoryStats = %+v, want 32 bytes in 1 buffer", s)
	}
}

func TestCreateBuffer_InvalidSize(t *testing.T) {
	c, _ := newTestContext(t)
	if _, err := c.CreateBuffer("x", 0); err == nil {
		t.Error("CreateBuffer(0) should fail")
	}
}

func TestCreateBuffer_DeviceFailure(t *testing.T) {
	c, dev := newTestContext(t)
	dev.failBuffer = true
	_, err := c.CreateBuffer("x", 16)
	var be *BufferError
	if !errors.As(err, &be) || be.Op != "create" {
		t.Errorf("CreateBuffer error = %v, want *BufferError create", err)
	}
}

func TestMemoryBudget(t *testing.T) {
	c, _ := newTestContext(t, WithMemoryBudget(100))
	if _, err := c.CreateBuffer("a", 60); err != nil {
		t.Fatal(err)
	}
	_, err := c.CreateBuffer("b", 60)
	if !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Errorf("over-budget CreateBuffer error = %v, want ErrMemoryBudgetExceeded", err)
	}
	// Shrinking a buffer in place frees budget.
	if _, err := c.CreateBuffer("a", 20); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateBuffer("b", 60); err != nil {
		t.Errorf("CreateBuffer after shrink: %v", err)
	}
	s := c.MemoryStats()
	if s.UsedBytes != 80 || s.Utilization != 0.8 {
		t.Errorf("MemoryStats = %+v, want 80 bytes, 0.8", s)
	}
	if !strings.Contains(s.String(), "80.0% used") {
		t.Errorf("String() = %q", s.String())
	}
}

func TestReadWrite_Range(t *testing.T) {
	c, _ := newTestContext(t)
	h, _ := c.CreateBuffer("b", 8)

	if err := c.WriteBuffer(h, 4, []byte{9, 8, 7, 6}); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	got := make([]byte, 2)
	if err := c.ReadBuffer(h, 5, got); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if !bytes.Equal(got, []byte{8, 7}) {
		t.Errorf("ReadBuffer = %v, want [8 7]", got)
	}

	if err := c.WriteBuffer(h, 6, []byte{1, 2, 3}); !errors.Is(err, ErrBufferRange) {
		t.Errorf("overflowing write error = %v, want ErrBufferRange", err)
	}
	if err := c.ReadBuffer(h, -1, got); !errors.Is(err, ErrBufferRange) {
		t.Errorf("negative read error = %v, want ErrBufferRange", err)
	}
	if err := c.ReadBuffer(BufferHandle(42), 0, got); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("unknown handle error = %v, want ErrUnknownBuffer", err)
	}
}

func TestFillAndCopy(t *testing.T) {
	c, _ := newTestContext(t)
	a, _ := c.CreateBuffer("a", 16)
	b, _ := c.CreateBuffer("b", 16)

	if err := c.FillBuffer(a, 0x01020304); err != nil {
		t.Fatalf("FillBuffer: %v", err)
	}
	if err := c.CopyBuffer(a, b, 8); err != nil {
		t.Fatalf("CopyBuffer: %v", err)
	}
	got := make([]byte, 16)
	_ = c.ReadBuffer(b, 0, got)
	want := []byte{4, 3, 2, 1, 4, 3, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("copied = %v, want %v", got, want)
	}
	if err := c.CopyBuffer(a, b, 32); !errors.Is(err, ErrBufferRange) {
		t.Errorf("oversized copy error = %v, want ErrBufferRange", err)
	}
}

func TestDeleteBuffer(t *testing.T) {
	c, _ := newTestContext(t)
	h, _ := c.CreateBuffer("a", 16)
	if err := c.DeleteBuffer(h); err != nil {
		t.Fatalf("DeleteBuffer: %v", err)
	}
	if _, ok := c.Buffer("a"); ok {
		t.Error("deleted buffer still found by name")
	}
	if c.MemoryUsageMB() != 0 {
		t.Errorf("MemoryUsageMB = %v, want 0", c.MemoryUsageMB())
	}
	if err := c.DeleteBuffer(h); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("double delete error = %v, want ErrUnknownBuffer", err)
	}
}

// =============================================================================
// Binding Tests
// =============================================================================

func TestBindErrors(t *testing.T) {
	c, _ := newTestContext(t)
	k, err := c.CreateKernel(testSpec)
	if err != nil {
		t.Fatal(err)
	}
	buf, _ := c.CreateBuffer("tex", 16)

	tests := []struct {
		name string
		bind func() error
		want error
	}{
		{"position past end", func() error { return c.BindBuffer(k, 9, buf) }, ErrArgOutOfRange},
		{"negative position", func() error { return c.BindValue(k, -1, Uint32(1)) }, ErrArgOutOfRange},
		{"consecutive run past end", func() error { return c.BindBuffer(k, 3, buf, buf) }, ErrArgKind},
		{"buffer at value position", func() error { return c.BindBuffer(k, 1, buf) }, ErrArgKind},
		{"value at buffer position", func() error { return c.BindValue(k, 0, Uint32(1)) }, ErrArgKind},
		{"wrong value type", func() error { return c.BindValue(k, 1, Float32(1)) }, ErrArgKind},
		{"local at value position", func() error { return c.BindLocal(k, 2, 64) }, ErrArgKind},
		{"unknown buffer", func() error { return c.BindBuffer(k, 0, BufferHandle(99)) }, ErrUnknownBuffer},
		{"unknown kernel", func() error { return c.BindValue(KernelHandle(5), 1, Uint32(1)) }, ErrUnknownKernel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bind()
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var ae *ArgError
			if !errors.As(err, &ae) {
				t.Fatalf("error %T is not *ArgError", err)
			}
		})
	}

	state, _ := c.Checkpoint(k)
	for i, a := range state.Args {
		if a.Bound {
			t.Errorf("arg %d bound after failed binds", i)
		}
	}
}

func TestArgError_NamesBuffer(t *testing.T) {
	c, _ := newTestContext(t)
	k, _ := c.CreateKernel(testSpec)
	buf, _ := c.CreateBuffer("accum", 16)
	err := c.BindBuffer(k, 2, buf)
	if err == nil || !strings.Contains(err.Error(), `"accum"`) || !strings.Contains(err.Error(), `"produce"`) {
		t.Errorf("error = %v, want kernel and buffer names", err)
	}
}

func TestResize_RoundsToWorkgroup(t *testing.T) {
	c, _ := newTestContext(t)
	k, _ := c.CreateKernel(testSpec)
	tests := []struct{ n, want int }{
		{0, 0},
		{1, 64},
		{64, 64},
		{65, 128},
		{10000, 10048},
		{1000000, 1000000},
	}
	for _, tt := range tests {
		if err := c.Resize(k, tt.n); err != nil {
			t.Fatal(err)
		}
		if got := c.Global(k); got != tt.want {
			t.Errorf("Resize(%d): Global() = %d, want %d", tt.n, got, tt.want)
		}
	}
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestDispatch_Unbound(t *testing.T) {
	c, _ := newTestContext(t)
	k, _ := c.CreateKernel(testSpec)
	buf, _ := c.CreateBuffer("tex", 16)
	_ = c.BindBuffer(k, 0, buf)
	_ = c.Resize(k, 10)

	err := c.Dispatch(k)
	if !errors.Is(err, ErrArgUnbound) {
		t.Fatalf("Dispatch error = %v, want ErrArgUnbound", err)
	}
	var ae *ArgError
	if errors.As(err, &ae) && ae.Pos != 1 {
		t.Errorf("ArgError.Pos = %d, want 1", ae.Pos)
	}
}

func TestDispatch_ResolvesArguments(t *testing.T) {
	c, dev := newTestContext(t)
	k, _ := c.CreateKernel(testSpec)
	buf, _ := c.CreateBuffer("tex", 16)
	bindAll(t, c, k, buf)
	_ = c.Resize(k, 100)

	if err := c.Dispatch(k); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(dev.dispatches) != 1 {
		t.Fatalf("dispatches = %d, want 1", len(dev.dispatches))
	}
	d := dev.dispatches[0]
	if d.kernel != "produce" || d.global != 128 {
		t.Errorf("dispatch = %s/%d, want produce/128", d.kernel, d.global)
	}
	if d.args[0].Buffer == nil || d.args[0].Buffer.Size() != 16 {
		t.Error("buffer argument not resolved")
	}
	if d.args[1].Value.AsUint32() != 7 {
		t.Errorf("value arg = %d, want 7", d.args[1].Value.AsUint32())
	}
	if d.args[3].Local != 256 {
		t.Errorf("local arg = %d, want 256", d.args[3].Local)
	}
	if len(c.Timings(k)) != 1 {
		t.Errorf("Timings = %d entries, want 1", len(c.Timings(k)))
	}
}

func TestDispatch_ZeroGlobalIsNoop(t *testing.T) {
	c, dev := newTestContext(t)
	k, _ := c.CreateKernel(testSpec)
	buf, _ := c.CreateBuffer("tex", 16)
	bindAll(t, c, k, buf)
	if err := c.Dispatch(k); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(dev.dispatches) != 0 {
		t.Errorf("dispatches = %d, want 0", len(dev.dispatches))
	}
}

func TestDispatch_DeletedBuffer(t *testing.T) {
	c, _ := newTestContext(t)
	k, _ := c.CreateKernel(testSpec)
	buf, _ := c.CreateBuffer("tex", 16)
	bindAll(t, c, k, buf)
	_ = c.Resize(k, 1)
	_ = c.DeleteBuffer(buf)
	if err := c.Dispatch(k); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("Dispatch error = %v, want ErrUnknownBuffer", err)
	}
}

func TestCreateKernel_Errors(t *testing.T) {
	c, dev := newTestContext(t)
	if _, err := c.CreateKernel(testSpec); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateKernel(testSpec); err == nil {
		t.Error("duplicate kernel name should fail")
	}
	dev.failKernel = true
	if _, err := c.CreateKernel(KernelSpec{Name: "other"}); !errors.Is(err, ErrBuild) {
		t.Errorf("build failure error = %v, want ErrBuild", err)
	}
}

func TestTimingHistory_Bounded(t *testing.T) {
	c, _ := newTestContext(t, WithTimingHistory(3))
	k, _ := c.CreateKernel(testSpec)
	buf, _ := c.CreateBuffer("tex", 16)
	bindAll(t, c, k, buf)
	_ = c.Resize(k, 1)
	for range 5 {
		if err := c.Dispatch(k); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(c.Timings(k)); n != 3 {
		t.Errorf("Timings = %d entries, want 3", n)
	}
	if c.MeanTime(k) < 0 || c.MeanTime(k) > time.Second {
		t.Errorf("MeanTime = %v", c.MeanTime(k))
	}
}

// =============================================================================
// Checkpoint Tests
// =============================================================================

func TestCheckpointRestore_RoundTrip(t *testing.T) {
	c, _ := newTestContext(t)
	k, _ := c.CreateKernel(testSpec)
	preview, _ := c.CreateBuffer("preview", 16)
	render, _ := c.CreateBuffer("render", 64)
	bindAll(t, c, k, preview)
	_ = c.Resize(k, 10000)

	saved, err := c.Checkpoint(k)
	if err != nil {
		t.Fatal(err)
	}

	_ = c.BindBuffer(k, 0, render)
	_ = c.BindValue(k, 1, Uint32(1000000))
	_ = c.Resize(k, 1000000)
	mid, _ := c.Checkpoint(k)
	if mid.Equal(saved) {
		t.Fatal("modified state compares equal to the checkpoint")
	}

	if err := c.Restore(k, saved); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	after, _ := c.Checkpoint(k)
	if !after.Equal(saved) {
		t.Errorf("restored state = %+v, want %+v", after, saved)
	}
}

func TestCheckpoint_IsACopy(t *testing.T) {
	c, _ := newTestContext(t)
	k, _ := c.CreateKernel(testSpec)
	s, _ := c.Checkpoint(k)
	s.Args[1] = Arg{Bound: true, Value: Uint32(3)}
	now, _ := c.Checkpoint(k)
	if now.Args[1].Bound {
		t.Error("editing a checkpoint changed the kernel")
	}
}

func TestRestore_Mismatch(t *testing.T) {
	c, _ := newTestContext(t)
	k, _ := c.CreateKernel(testSpec)
	if err := c.Restore(k, KernelState{Args: make([]Arg, 2)}); !errors.Is(err, ErrArgOutOfRange) {
		t.Errorf("Restore error = %v, want ErrArgOutOfRange", err)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose_ReleasesDevice(t *testing.T) {
	dev := &fakeDevice{}
	c := NewContext(dev)
	_, _ = c.CreateBuffer("a", 4)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if !dev.closed {
		t.Error("device not closed")
	}
	if _, err := c.CreateBuffer("b", 4); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateBuffer after Close error = %v, want ErrClosed", err)
	}
}
