// Package system provides the wall clock used for build timings and artifact metadata.
package system

import "time"

// Clock implements table.Clock and orchestrator.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
