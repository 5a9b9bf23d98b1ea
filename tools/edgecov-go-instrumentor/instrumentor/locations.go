package instrumentor

import (
	"github.com/edgecov/edgecov-go/coverage"
)

// nextLocation assigns a fresh pseudo-random location in
// [0, coverage.MapSize). There is no uniqueness guarantee: two blocks
// may draw the same location, and the edge hashing tolerates that.
// Coverage is a probabilistic signal, not an exact edge census.
//
// Callers must only draw after both the whitelist and sampling gates
// have passed, so that skipped blocks leave the random stream
// untouched.
func (i *Instrumentor) nextLocation() uint16 {
	return uint16(i.stream.Intn(coverage.MapSize))
}

// sampleBlock makes the per-block Bernoulli decision for the configured
// instrumentation ratio. Ratio 100 always instruments. The decision is
// independent of the whitelist gate and independent across blocks.
func (i *Instrumentor) sampleBlock() bool {
	return i.stream.Intn(100) < i.ratio
}
