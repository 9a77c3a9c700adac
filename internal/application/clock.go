package application

import "time"

// Clock is the time source of the pipeline; report names and the analysis
// date both come from it.
type Clock interface {
	Now() time.Time
}

// SystemClock pakai jam lokal proses
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Used to make runs reproducible.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
