package gamification

import "time"

// Clock provides the current time. Services read time only through it.
type Clock interface {
	Now() time.Time
}

// CalendarClock is the system clock read in a fixed calendar location, so
// day boundaries follow the configured timezone.
type CalendarClock struct {
	Loc *time.Location
}

// Now returns the current time in c.Loc (UTC when unset).
func (c CalendarClock) Now() time.Time {
	if c.Loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Loc)
}

// FixedClock always returns T. Use for deterministic tests.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time {
	return c.T
}
