package accumulator

// Cache is an unbounded free-list of reusable instances. It grows to the
// peak number of instances checked out at once.
type Cache[T any] struct {
	newFn func() T
	reset func(T)
	free  []T
}

// NewCache returns a cache that builds instances with newFn and clears them
// with reset (optional) before they are pooled.
func NewCache[T any](newFn func() T, reset func(T)) *Cache[T] {
	return &Cache[T]{newFn: newFn, reset: reset}
}

// Get pops a pooled instance or builds a new one.
func (c *Cache[T]) Get() T {
	if n := len(c.free); n > 0 {
		x := c.free[n-1]
		var zero T
		c.free[n-1] = zero
		c.free = c.free[:n-1]
		return x
	}
	return c.newFn()
}

// Dispose resets x and returns it to the pool.
func (c *Cache[T]) Dispose(x T) {
	if c.reset != nil {
		c.reset(x)
	}
	c.free = append(c.free, x)
}

// Len returns the number of pooled instances.
func (c *Cache[T]) Len() int { return len(c.free) }
