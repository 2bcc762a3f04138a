package syncclient

import "time"

// Timer is a handle to deferred work scheduled through a Clock. Stop
// cancels the pending call if it has not yet fired.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so deferred work (the update coalesce timer, the
// unacknowledged-change resend timer) can be driven deterministically in
// tests instead of through the real wall clock. Mirrors the Now
// override on sync.Options in the reconciliation engine this package is
// modeled on.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
