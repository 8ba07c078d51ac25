package meter

import "time"

// historyLen is how many recent events are kept for diagnostics.
const historyLen = 10

// Debouncer rejects spurious line transitions using a minimum-time-between-
// accepted-events rule, tracked separately per edge type.
type Debouncer struct {
	threshold    time.Duration
	lastAccepted map[EdgeType]time.Duration
	history      []EdgeEvent
	debounced    uint64
}

// NewDebouncer creates a Debouncer with the given threshold.
func NewDebouncer(threshold time.Duration) *Debouncer {
	return &Debouncer{
		threshold:    threshold,
		lastAccepted: make(map[EdgeType]time.Duration),
	}
}

// Process applies the debounce rule to a single event and returns whether it
// was accepted, along with the delta to the previously accepted event of the
// same type. The first event of each type is always accepted.
//
// Rejected events only update the diagnostic debounced count and the rolling
// history. Accepted events update the per-type last-accepted timestamp.
func (d *Debouncer) Process(ev EdgeEvent) (accepted bool, delta time.Duration) {
	d.record(ev)

	last, seen := d.lastAccepted[ev.Type]
	if seen {
		delta = ev.Timestamp - last
		if delta < d.threshold {
			d.debounced++
			return false, delta
		}
	}

	d.lastAccepted[ev.Type] = ev.Timestamp
	return true, delta
}

// record prepends the event to the rolling history, most recent first.
func (d *Debouncer) record(ev EdgeEvent) {
	d.history = append([]EdgeEvent{ev}, d.history...)
	if len(d.history) > historyLen {
		d.history = d.history[:historyLen]
	}
}

// Debounced returns the number of rejected events since startup.
// The count never resets.
func (d *Debouncer) Debounced() uint64 {
	return d.debounced
}

// History returns the most recent events, newest first.
func (d *Debouncer) History() []EdgeEvent {
	return d.history
}
