// Package random supplies the pseudo-random draws behind location
// assignment and instrumentation sampling.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// Stream wraps a seeded math/rand generator. The reference system had no
// seeding surface at all; exposing the seed here lets two instrumentation
// runs over the same input assign the same locations, which matters for
// reproducible builds and for tests. A zero seed selects a fresh seed
// from OS entropy, matching the reference behavior of different
// identifiers on every compilation.
type Stream struct {
	rng   *rand.Rand
	draws uint64
}

// NewStream returns a Stream for the given seed, or an entropy-seeded
// Stream when seed is 0.
func NewStream(seed int64) *Stream {
	if seed == 0 {
		seed = entropySeed()
	}
	return &Stream{rng: rand.New(rand.NewSource(seed))}
}

func entropySeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// Intn draws a uniform integer in [0, n).
func (s *Stream) Intn(n int) int {
	s.draws++
	return s.rng.Intn(n)
}

// Draws reports how many values have been consumed from the stream.
// Blocks that are skipped by the whitelist or sampling gates must not
// consume a draw; this counter is how the tests hold that line.
func (s *Stream) Draws() uint64 {
	return s.draws
}
