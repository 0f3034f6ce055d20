package randomizer

import (
	"hash/fnv"
	"math/bits"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// seedSeparator cannot appear in attempt or question ids.
const seedSeparator = "\x00"

// Seed builds the stable seed string for one question within one attempt.
func Seed(attemptID, questionID string) string {
	return attemptID + seedSeparator + questionID
}

// Generate returns a permutation of 0..n-1 derived only from seed.
func Generate(seed string, n int) (models.Permutation, error) {
	if n < 0 {
		return nil, apperrors.NewInvalidInput("n", "negative permutation length %d", n)
	}

	perm := make(models.Permutation, n)
	for i := range perm {
		perm[i] = i
	}
	if n <= 1 {
		return perm, nil
	}

	rng := newXorshift(hashSeed(seed))
	// Fisher-Yates
	for i := n - 1; i > 0; i-- {
		j := rng.intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}

func hashSeed(seed string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return h.Sum64()
}

// xorshift is xorshift64*; the state must never be zero.
type xorshift struct {
	state uint64
}

func newXorshift(seed uint64) *xorshift {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return &xorshift{state: seed}
}

func (x *xorshift) next() uint64 {
	x.state ^= x.state >> 12
	x.state ^= x.state << 25
	x.state ^= x.state >> 27
	return x.state * 0x2545F4914F6CDD1D
}

// intn returns a value in [0,n) using the high word of a 64x64 multiply.
func (x *xorshift) intn(n int) int {
	hi, _ := bits.Mul64(x.next(), uint64(n))
	return int(hi)
}
