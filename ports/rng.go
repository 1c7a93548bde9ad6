package ports

import "math/rand"

// RNG provides seeded random number generation for deterministic operations.
type RNG interface {
	// SeededStream creates a deterministic generator for a named operation.
	// The same (name, seed) pair always produces the same sequence, and
	// distinct names produce independent sequences, so bootstrap workers can
	// draw from iteration-indexed streams without sharing state.
	SeededStream(name string, seed int64) *rand.Rand
}
