package submission

import "sync"

// Reason tags for unmatched events. Reports group by these.
const (
	ReasonNoMatchingAssignment = "no matching assignment"
	ReasonUnknownAuthor        = "author not in batch"
	ReasonMissingURL           = "event has no URL"
	ReasonMissingAuthor        = "event has no author"
	ReasonZeroTimestamp        = "event has zero timestamp"
	ReasonBadSprintNumber      = "impractical sprint number in title"
)

// UnmatchedEvent is an event the reconciler could not place into any slot.
// It is retained verbatim and surfaces to the report; an event is never
// both matched and unmatched.
type UnmatchedEvent struct {
	URL    string
	Title  string
	Author string
	Repo   string
	Reason string
}

// identity dedups events. URL when present, otherwise the raw fields.
func (e UnmatchedEvent) identity() string {
	if e.URL != "" {
		return e.URL
	}
	return e.Author + "\x00" + e.Repo + "\x00" + e.Title
}

// UnmatchedCollector is an append-only, URL-deduplicated accumulator kept
// in first-seen order. Appends are safe under concurrent use so
// per-trainee reconciliation may run in parallel; for a deterministic
// report, workers collect locally and Merge in roster order instead of
// interleaving appends.
type UnmatchedCollector struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []UnmatchedEvent
}

// NewUnmatchedCollector creates an empty collector.
func NewUnmatchedCollector() *UnmatchedCollector {
	return &UnmatchedCollector{seen: make(map[string]struct{})}
}

// Append records an event unless its identity was already seen.
// Returns true if the event was added.
func (c *UnmatchedCollector) Append(ev UnmatchedEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := ev.identity()
	if _, dup := c.seen[id]; dup {
		return false
	}
	c.seen[id] = struct{}{}
	c.events = append(c.events, ev)
	return true
}

// Merge appends a pre-ordered slice, keeping first-seen dedup semantics.
func (c *UnmatchedCollector) Merge(events []UnmatchedEvent) {
	for _, ev := range events {
		c.Append(ev)
	}
}

// Events returns a copy of the collected events in first-seen order.
func (c *UnmatchedCollector) Events() []UnmatchedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]UnmatchedEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Len returns the number of collected events.
func (c *UnmatchedCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
