package compute

import "fmt"

// MemoryStats reports device memory held by a Context.
type MemoryStats struct {
	// UsedBytes is the total size of live buffers.
	UsedBytes uint64

	// BudgetBytes is the configured limit, 0 when unlimited.
	BudgetBytes uint64

	// BufferCount is the number of live buffers.
	BufferCount int

	// Utilization is UsedBytes/BudgetBytes, 0 when unlimited.
	Utilization float64
}

// UsedMB returns UsedBytes in megabytes.
func (s MemoryStats) UsedMB() float64 {
	return float64(s.UsedBytes) / (1024 * 1024)
}

// String returns a human-readable summary.
func (s MemoryStats) String() string {
	if s.BudgetBytes == 0 {
		return fmt.Sprintf("Memory[%.2f MB, %d buffers]", s.UsedMB(), s.BufferCount)
	}
	return fmt.Sprintf("Memory[%.1f%% used, %.2f/%d MB, %d buffers]",
		s.Utilization*100,
		s.UsedMB(),
		s.BudgetBytes/(1024*1024),
		s.BufferCount)
}

// MemoryStats returns the current memory accounting.
func (c *Context) MemoryStats() MemoryStats {
	s := MemoryStats{
		UsedBytes:   c.usedBytes,
		BudgetBytes: c.budgetBytes,
	}
	for _, b := range c.buffers {
		if b != nil {
			s.BufferCount++
		}
	}
	if c.budgetBytes > 0 {
		s.Utilization = float64(c.usedBytes) / float64(c.budgetBytes)
	}
	return s
}

// MemoryUsageMB returns the total size of live buffers in megabytes.
func (c *Context) MemoryUsageMB() float64 {
	return c.MemoryStats().UsedMB()
}

// reserve checks that replacing old bytes with size bytes stays within
// budget.
func (c *Context) reserve(name string, old, size int) error {
	if c.budgetBytes == 0 {
		return nil
	}
	//nolint:gosec // G115: buffer sizes are validated non-negative
	next := c.usedBytes - uint64(old) + uint64(size)
	if next > c.budgetBytes {
		return fmt.Errorf("%w: buffer %q needs %d bytes, %d of %d in use",
			ErrMemoryBudgetExceeded, name, size, c.usedBytes, c.budgetBytes)
	}
	return nil
}
