// Package coverage holds the shared run-time state referenced by
// edgecov-instrumented programs. The instrumentor never allocates or
// initializes this state; it only emits statements that index CoverTab
// and update PrevLoc.
package coverage

// MapSize is the addressable range of the coverage map. Every location
// identifier handed out during instrumentation is below this bound, so
// the XOR of any two identifiers is a valid map index.
const MapSize = 1 << 16

// CoverTab holds the edge hit counters. It is indexed by the XOR of the
// stored previous location and the current block's location, and each
// byte is an 8-bit wraparound counter: overflow from 255 to 0 is
// accepted, the counts are frequency hints rather than exact tallies.
//
// Updates are intentionally unsynchronized. Concurrent goroutines racing
// on the same byte may drop or misattribute hits, which is an accepted
// loss: the signal only needs to be approximately right, and any locking
// here would put a barrier on every basic block of the target program.
var CoverTab = new([MapSize]byte)

// PrevLoc is the moving cursor recording where control flow was last
// observed. Instrumented sites store their own location shifted right by
// one bit, which keeps the A->B and B->A edges of a loop hashing to
// different CoverTab slots. It is shared by all goroutines, without
// synchronization, for the same reason CoverTab is.
var PrevLoc uint16

// Snapshot copies the current hit counters for an external driver.
func Snapshot() []byte {
	out := make([]byte, MapSize)
	copy(out, CoverTab[:])
	return out
}

// Reset clears the hit counters and the previous-location cursor,
// typically between fuzz-driver executions.
func Reset() {
	*CoverTab = [MapSize]byte{}
	PrevLoc = 0
}
