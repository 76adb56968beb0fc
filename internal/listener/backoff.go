package listener

import "time"

// Backoff maps a consecutive-failure count to a wait duration from a
// configured delay schedule. Delays escalate through the schedule and then
// hold at the last value indefinitely; there is no maximum retry count.
type Backoff struct {
	schedule []time.Duration
	failures int
}

// DefaultRetryDelays is the schedule used when none is configured.
var DefaultRetryDelays = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
}

func NewBackoff(schedule []time.Duration) *Backoff {
	if len(schedule) == 0 {
		schedule = DefaultRetryDelays
	}
	return &Backoff{schedule: schedule}
}

// Next records one more consecutive failure and returns the delay to wait
// before the next attempt: schedule[min(failures-1, len(schedule)-1)].
func (b *Backoff) Next() time.Duration {
	b.failures++
	idx := b.failures - 1
	if idx >= len(b.schedule) {
		idx = len(b.schedule) - 1
	}
	return b.schedule[idx]
}

// Reset clears the failure count after any success.
func (b *Backoff) Reset() {
	b.failures = 0
}

// Failures returns the current consecutive-failure count.
func (b *Backoff) Failures() int {
	return b.failures
}
