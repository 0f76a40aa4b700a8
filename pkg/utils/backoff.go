package utils

import (
	"context"
	"math"
	"time"
)

// Backoff is an exponential delay policy: base^attempt seconds, capped at Max.
type Backoff struct {
	Base float64       // growth factor, e.g. 2 gives 2s, 4s, 8s...
	Unit time.Duration // defaults to one second
	Max  time.Duration
}

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	unit := b.Unit
	if unit <= 0 {
		unit = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	d := math.Pow(b.Base, float64(attempt)) * float64(unit)
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
