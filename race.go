//go:build race

package mpqueue

// RaceEnabled is true when the race detector is active.
//
// Used by tests to skip cases whose correctness depends on acquire-release
// orderings between separate memory locations — the race detector tracks
// explicit synchronization primitives but cannot see a happens-before edge
// established purely by a sequence-tag CAS on an unrelated variable.
const RaceEnabled = true
