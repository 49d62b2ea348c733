package dispatch

import "time"

// SetClock replaces the submission timestamp source for tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}
