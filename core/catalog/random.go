package catalog

import (
	crand "crypto/rand"
	"math/big"

	"echofm/logger"
	"echofm/model"
)

// Rand yields uniformly distributed ints in [0, n). Implementations must be
// safe for concurrent use; the feed path calls it from parallel handlers.
type Rand interface {
	Intn(n int) int
}

// SecureRand draws from crypto/rand. It carries no state, so concurrent use
// is safe and feed reuse patterns stay unpredictable across the fleet.
type SecureRand struct{}

func (SecureRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		logger.Warn("crypto rand failed", logger.ErrorField(err))
		return 0
	}
	return int(v.Int64())
}

// pickTwo returns two distinct indexes in [0, n). Requires n >= 2.
func pickTwo(r Rand, n int) (int, int) {
	i := r.Intn(n)
	j := r.Intn(n - 1)
	if j >= i {
		j++
	}
	return i, j
}

// shuffle performs a Fisher-Yates shuffle in place.
func shuffle(r Rand, items []model.MediaResponse) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
