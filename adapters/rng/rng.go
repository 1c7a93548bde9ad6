// Package rng provides deterministic random streams. Each named stream is an
// independent generator whose sequence depends only on (name, seed), so the
// bootstrap driver can hand one stream per iteration to any worker and get
// the same draws regardless of scheduling.
package rng

import (
	"hash/fnv"
	"math/rand"

	"github.com/takjakim/method-studio/ports"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ ports.RNG = (*Adapter)(nil)

// SeededStream derives the stream seed by hashing the name into the base
// seed. Identical (name, seed) pairs always produce identical sequences.
func (a *Adapter) SeededStream(name string, seed int64) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	derived := seed ^ int64(h.Sum64())
	return rand.New(rand.NewSource(derived))
}
