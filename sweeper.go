package smartcache

import (
	"math"
	"time"

	"github.com/apex/log"
)

// sweepMargin pushes each tick just past the TTL so that an entry written
// right after the previous tick has expired by the next one.
const sweepMargin = time.Millisecond

// sweepInterval is ttl+sweepMargin, saturating instead of overflowing for
// TTLs close to the largest Duration.
func sweepInterval(ttl time.Duration) time.Duration {
	if ttl > math.MaxInt64-sweepMargin {
		return math.MaxInt64
	}
	return ttl + sweepMargin
}

// armSweeperLocked starts the sweeper if the store has entries and none is
// running. c.mu must be held.
func (c *Cache[K, V]) armSweeperLocked() {
	if c.sweeping || c.closed || c.settled.len() == 0 {
		return
	}
	c.sweeping = true
	stop := make(chan struct{})
	c.stopSweep = stop

	c.wg.Add(1)
	go c.sweepLoop(stop)

	c.logger.WithField("interval", sweepInterval(c.cfg.TTL)).Debug("sweeper armed")
}

// disarmSweeperLocked stops a running sweeper. c.mu must be held.
func (c *Cache[K, V]) disarmSweeperLocked() {
	if !c.sweeping {
		return
	}
	close(c.stopSweep)
	c.stopSweep = nil
	c.sweeping = false
}

func (c *Cache[K, V]) sweepLoop(stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(sweepInterval(c.cfg.TTL))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.sweep(stop) {
				return
			}
		}
	}
}

// sweep drops expired entries and reports whether the sweeper should keep
// running. An empty store disarms it.
func (c *Cache[K, V]) sweep(stop <-chan struct{}) bool {
	c.mu.Lock()
	if c.stopSweep != stop {
		// Disarmed by Close while this tick was pending.
		c.mu.Unlock()
		return false
	}
	removed := c.settled.sweepExpired(c.now())
	remaining := c.settled.len()
	if remaining == 0 {
		c.disarmSweeperLocked()
	}
	c.mu.Unlock()

	if removed > 0 {
		c.emit(EventExpire, nil, removed)
	}
	c.logger.WithFields(log.Fields{
		"removed":   removed,
		"remaining": remaining,
	}).Debug("swept expired entries")

	if remaining == 0 {
		c.logger.Debug("sweeper disarmed")
		return false
	}
	return true
}
