package pricing

import "sync"

// Coalescer collapses bursts of notifications into at most one running
// pass plus one queued behind it. Notifications arriving while a pass is
// both running and queued are dropped; the queued pass will observe their
// effects anyway.
type Coalescer struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	running bool
	queued  bool
	run     func()
}

func NewCoalescer(run func()) *Coalescer {
	return &Coalescer{run: run}
}

// Trigger requests a pass. It never blocks: the pass executes on its own
// goroutine.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	if c.running {
		c.queued = true
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop()
}

func (c *Coalescer) loop() {
	defer c.wg.Done()
	for {
		c.run()

		c.mu.Lock()
		if c.queued {
			c.queued = false
			c.mu.Unlock()
			continue
		}
		c.running = false
		c.mu.Unlock()
		return
	}
}

// Wait blocks until all in-flight passes have finished. Intended for
// shutdown and tests.
func (c *Coalescer) Wait() {
	c.wg.Wait()
}
