package ledfx

import (
	"math/rand/v2"
	"time"
)

// Random is the source of randomness used by effects. *rand.Rand from
// math/rand/v2 satisfies it.
type Random interface {
	// IntN returns a uniform integer in [0, n). n is always positive.
	IntN(n int) int
}

// NewRandom returns a seeded Random. Two sources created with the same seed
// produce the same sequence.
func NewRandom(seed uint64) Random {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func timeSeed() uint64 {
	return uint64(time.Now().UnixNano())
}

// random8 returns a uniform value in [0, n) with n capped to 256.
func random8(r Random, n int) int {
	return randomN(r, min(n, 1<<8))
}

// random16 returns a uniform value in [0, n) with n capped to 65536.
func random16(r Random, n int) int {
	return randomN(r, min(n, 1<<16))
}

func randomN(r Random, n int) int {
	if n <= 0 || r == nil {
		return 0
	}
	return r.IntN(n)
}
