package dispatch

import "sync"

// ActivityIndicator is the UI hook toggled around every network call. Both
// methods are invoked on the main execution context.
type ActivityIndicator interface {
	Show()
	Hide()
}

// NopIndicator ignores activity changes.
type NopIndicator struct{}

func (NopIndicator) Show() {}
func (NopIndicator) Hide() {}

// CountingIndicator collapses overlapping calls into a single visible
// period: set(true) fires on the first Show, set(false) when the last
// outstanding call hides.
type CountingIndicator struct {
	mu     sync.Mutex
	active int
	set    func(visible bool)
}

// NewCountingIndicator wraps a visibility setter.
func NewCountingIndicator(set func(visible bool)) *CountingIndicator {
	return &CountingIndicator{set: set}
}

func (c *CountingIndicator) Show() {
	c.mu.Lock()
	c.active++
	first := c.active == 1
	c.mu.Unlock()
	if first {
		c.set(true)
	}
}

func (c *CountingIndicator) Hide() {
	c.mu.Lock()
	if c.active == 0 {
		c.mu.Unlock()
		return
	}
	c.active--
	last := c.active == 0
	c.mu.Unlock()
	if last {
		c.set(false)
	}
}

// Active returns the number of calls currently shown.
func (c *CountingIndicator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
