package core

import "time"

// Clock supplies the unix-seconds timestamp every transition is stamped
// with. Injected so tests and replay run against a fixed time source.
type Clock interface {
	Now() int64
}

// WallClock reads the system clock.
type WallClock struct{}

func (WallClock) Now() int64 {
	return time.Now().Unix()
}

// FixedClock always returns the same instant. Test wiring.
type FixedClock struct {
	Unix int64
}

func (c FixedClock) Now() int64 {
	return c.Unix
}
