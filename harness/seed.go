package harness

import (
	"encoding/binary"
	"hash/fnv"
	"io"

	"github.com/provebench/provebench/paramspace"
)

// Seed derives the deterministic seed for one attempt of one parameter
// combination. The same parameters and attempt index always yield the
// same seed across runs and builds; distinct attempts yield distinct
// seeds so repetitions do not replay identical randomness.
func Seed(set paramspace.Set, attempt int) uint64 {
	h := fnv.New64a()

	_, _ = io.WriteString(h, set.Key())

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(attempt))
	_, _ = h.Write(buf[:])

	return h.Sum64()
}
