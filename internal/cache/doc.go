// Package cache provides a small generic LRU cache for device resources.
//
// Evicted values are passed to a callback so that GPU objects (staging
// buffers, pipelines) are destroyed exactly once:
//
//	c := cache.New[uint64, hal.Buffer](4, func(_ uint64, b hal.Buffer) {
//	    device.DestroyBuffer(b)
//	})
//	buf, err := c.GetOrCreate(size, createStaging)
//	...
//	c.Purge() // before destroying the device
//
// The cache is not safe for concurrent use.
package cache
