package xai

import (
	"math/rand/v2"
	"time"
)

// Budget is a single monotonic deadline shared by every attempt of one
// request. time.Now carries a monotonic reading, so wall-clock jumps do
// not stretch or shrink it.
type Budget struct {
	deadline time.Time
}

func NewBudget(total time.Duration) *Budget {
	return &Budget{deadline: time.Now().Add(total)}
}

// Remaining returns the time left, never negative
func (b *Budget) Remaining() time.Duration {
	if left := time.Until(b.deadline); left > 0 {
		return left
	}
	return 0
}

func (b *Budget) Exhausted() bool {
	return b.Remaining() == 0
}

// Cap limits d to the remaining budget
func (b *Budget) Cap(d time.Duration) time.Duration {
	return min(d, b.Remaining())
}

// backoff returns the sleep before retry number n (n >= 1):
// base * 2^(n-1) plus up to 50% jitter.
func backoff(n int, base time.Duration) time.Duration {
	if n < 1 || base <= 0 {
		return 0
	}
	d := base << (n - 1)
	if half := int64(d / 2); half > 0 {
		d += time.Duration(rand.Int64N(half + 1))
	}
	return d
}
