package quiz

import "time"

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop reports whether the callback was prevented from running.
	Stop() bool
}

// Clock supplies time and one-shot callbacks to a Session.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock is the wall clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
