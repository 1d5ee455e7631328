package netsim

// clock.go holds the virtual clock. Time is carried as a (Seconds, Pri)
// pair in the same spirit as the two-field timestamp trace.go's
// vrt.Seconds()/vrt.Pri() accessors expose: Seconds is the simulated
// instant, Pri is a tie-break used only when two timestamps carry
// identical Seconds, so that an EventQueue built on this type can order
// strictly.

// VTime is a virtual timestamp: a point in simulated time plus the
// insertion-sequence tie-break that makes ordering deterministic when two
// events share the same Seconds value.
type VTime struct {
	Seconds float64
	Pri     int64
}

// Before reports whether vt sorts strictly earlier than other.
func (vt VTime) Before(other VTime) bool {
	if vt.Seconds != other.Seconds {
		return vt.Seconds < other.Seconds
	}
	return vt.Pri < other.Pri
}

// SecondsToVTime builds a VTime from a bare number of seconds, giving it
// zero tie-break priority. The EventQueue does not take a VTime from
// callers: it builds its own for each event, with Pri set to the
// insertion-sequence counter at schedule time.
func SecondsToVTime(seconds float64) VTime {
	return VTime{Seconds: seconds}
}

// Clock holds the current virtual time. Only the scheduler (EventQueue's
// owner, the Simulation) advances it, and only ever forward, to the
// scheduled_time of the event currently being performed.
type Clock struct {
	now VTime
}

// NewClock returns a Clock initialized to time zero.
func NewClock() *Clock {
	return &Clock{now: VTime{}}
}

// Now returns the current virtual time.
func (c *Clock) Now() VTime {
	return c.now
}

// NowSeconds is a convenience accessor used throughout the engine, where
// most delay arithmetic is plain float64 seconds.
func (c *Clock) NowSeconds() float64 {
	return c.now.Seconds
}

// advance moves the clock forward to t. Panics if t would move the clock
// backward: that would indicate a bug in the scheduler, not a condition a
// caller should have to check for.
func (c *Clock) advance(t VTime) {
	if t.Seconds < c.now.Seconds {
		panic("clock moved backward: scheduler invariant violated")
	}
	c.now = t
}
