// ABOUTME: Collects non-fatal failures such as persistence errors for later inspection.
// ABOUTME: Keeps a bounded ring of recent events and logs each one as it arrives.
package diag

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/healthsync/internal/models"
)

// DefaultCapacity bounds how many events a Collector retains.
const DefaultCapacity = 100

// Event is one reported failure.
type Event struct {
	At     time.Time
	Domain models.Domain
	Op     string
	Err    error
}

// Collector is safe for concurrent use. A nil *Collector discards reports.
type Collector struct {
	mu       sync.Mutex
	events   []Event
	total    int
	capacity int
	logger   *log.Logger
	now      func() time.Time
}

// NewCollector returns a collector retaining up to capacity events.
func NewCollector(logger *log.Logger, capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{capacity: capacity, logger: logger, now: time.Now}
}

// Report records err against domain and operation. Nil errors are ignored.
func (c *Collector) Report(d models.Domain, op string, err error) {
	if c == nil || err == nil {
		return
	}
	c.logger.Error("operation failed", "domain", d, "op", op, "err", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.events = append(c.events, Event{At: c.now(), Domain: d, Op: op, Err: err})
	if len(c.events) > c.capacity {
		c.events = c.events[len(c.events)-c.capacity:]
	}
}

// Events returns retained events, oldest first.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Total counts every report, including ones evicted from the ring.
func (c *Collector) Total() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Clear drops retained events and resets the total.
func (c *Collector) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.total = 0
}
