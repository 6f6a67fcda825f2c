package retry

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/exp/constraints"
)

type Strategy interface {
	Sleep(uint) (time.Duration, bool)
}

type never struct{}

func NewNever() *never {
	return &never{}
}

func (nr *never) Sleep(n uint) (time.Duration, bool) {
	return 0, true
}

type Entropy func(int64) int64

type exponentialBackOff struct {
	base          time.Duration
	max           time.Duration
	maxRetryCount uint
	entropy       Entropy
}

func NewExponentialBackOff(base time.Duration, max time.Duration, maxRetryCount uint, entropy Entropy) *exponentialBackOff {
	return &exponentialBackOff{
		base:          base,
		max:           max,
		maxRetryCount: maxRetryCount,
		entropy:       entropy,
	}
}

// Sleep returns a full-jitter delay for the retryCount-th retry, capped at
// max, and true once maxRetryCount retries have been spent.
func (eb *exponentialBackOff) Sleep(retryCount uint) (time.Duration, bool) {
	if retryCount >= eb.maxRetryCount {
		return 0, true
	}

	ceiling := int64(eb.max)
	if retryCount < 63 {
		if delay, err := checkedMulInt64(1<<retryCount, int64(eb.base)); err == nil {
			ceiling = lesser(delay, ceiling)
		}
	}
	return eb.jitter(ceiling), false
}

func (eb *exponentialBackOff) jitter(ceiling int64) time.Duration {
	if eb.entropy != nil {
		return time.Duration(eb.entropy(ceiling))
	}
	// rand.Int64N panics on non-positive bounds.
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(ceiling))
}

func lesser[T constraints.Ordered](l T, r T) T {
	if l > r {
		return r
	}
	return l
}

var OverflowError = errors.New("overflow")

func checkedMulInt64(l int64, r int64) (int64, error) {
	if l == 0 || r == 0 {
		return l * r, nil
	}
	if l > math.MaxInt64/r {
		return 0, OverflowError
	}
	return l * r, nil
}
