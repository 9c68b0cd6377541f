package scrapejob

import "time"

// Clock abstracts time for the polling wait.
type Clock interface {
	Now() time.Time
	// NewTimer returns a channel that fires after d and a stop function.
	NewTimer(d time.Duration) (<-chan time.Time, func() bool)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) NewTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}
