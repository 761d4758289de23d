package stereo

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

// pseudorandSeed is the fixed run seed used under UsePseudorand.
const pseudorandSeed uint64 = 0x5350 // "SP"

// runSeed picks the seed of a run: the fixed constant when deterministic,
// otherwise fresh entropy.
func runSeed(usePseudorand bool) uint64 {
	if usePseudorand {
		return pseudorandSeed
	}
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// entropy exhaustion is not actionable here; any value works
		return 0x9e3779b97f4a7c15
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// mix64 is the splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// pixelRand returns the RNG for one pixel of one sweep. The stream depends
// only on (seed, sweep, x, y), never on scheduling, so results are identical
// at any worker count.
func pixelRand(seed uint64, sweep, x, y int) *rand.Rand {
	h := mix64(seed)
	h = mix64(h ^ uint64(sweep))
	h = mix64(h ^ uint64(uint32(x)))
	h = mix64(h ^ uint64(uint32(y)))
	return rand.New(rand.NewSource(int64(h)))
}
