package clock

import "time"

// Clock abstracts wall-clock reads. Only the validator's future-timestamp
// check consumes it; every stage past validation is anchored on the
// data-derived reference time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewSystemClock() Clock {
	return systemClock{}
}
