//go:build !race

package mpqueue

// RaceEnabled is false when the race detector is not active.
const RaceEnabled = false
