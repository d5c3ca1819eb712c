package partition

import "math/rand/v2"

// Stream selects an independent random sequence derived from the seed.
type Stream uint64

const (
	DumpStream     Stream = 0x64756d70         // "dump"
	OrderStream    Stream = 0x6f72646572       // "order"
	FallbackStream Stream = 0x66616c6c6261636b // "fallback"
)

// NewRand returns a PCG generator for the given seed and stream.
func NewRand(seed uint64, stream Stream) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(stream)))
}
