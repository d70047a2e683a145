package service

import "time"

// Clock supplies the current time to TTL logic so that expiry can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// SystemClock returns a clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock is a clock pinned to a settable instant, for tests.
type FixedClock struct {
	Instant time.Time
}

// NewFixedClock returns a clock that reports t until advanced.
func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{Instant: t.UTC()} }

// Now returns the pinned instant.
func (f *FixedClock) Now() time.Time { return f.Instant }

// Advance moves the pinned instant forward by d.
func (f *FixedClock) Advance(d time.Duration) { f.Instant = f.Instant.Add(d) }
