package smartcache

// Observer receives cache lifecycle events. Implementations must be safe
// for concurrent use; events are delivered from caller goroutines, fetch
// goroutines and the expiry sweeper.
type Observer interface {
	On(eventData EventData)
}

// Event represents a cache event type.
type Event int

const (
	// EventHit is emitted when Get finds an unexpired settled result.
	EventHit Event = iota
	// EventMiss is emitted when Get starts a new fetch.
	EventMiss
	// EventDedup is emitted when a caller shares an in-flight fetch
	// instead of starting a new one.
	EventDedup
	// EventBusy is emitted when Get is rejected with ErrBusy.
	EventBusy
	// EventExpire is emitted when expired entries are dropped, either by
	// a Get that found a stale entry or by the sweeper.
	EventExpire
	// EventEvict is emitted when entries are dropped to make room.
	EventEvict
)

var eventNames = [...]string{
	EventHit:    "hit",
	EventMiss:   "miss",
	EventDedup:  "dedup",
	EventBusy:   "busy",
	EventExpire: "expire",
	EventEvict:  "evict",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

// EventData carries the details of a cache event. Key is unset for events
// that cover many keys at once (sweeps and batch evictions). Count is the
// number of entries the event applies to.
type EventData struct {
	Event Event
	Key   any
	Count int
}
