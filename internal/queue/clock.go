package queue

import "time"

// Ticker abstracts time.Ticker so tests can drive the scheduler
// deterministically instead of waiting on wall-clock delays
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock supplies current time and tickers to the queue
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

// SystemClock returns the wall-clock implementation used in production
func SystemClock() Clock {
	return systemClock{}
}
