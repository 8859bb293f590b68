package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Strategy yields the pause before the next attempt. attempt counts the
// failures so far and starts at 1.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Exponential grows the pause by Factor per failure, capped at Max, with
// up to Jitter (a fraction of the delay) added or removed at random.
type Exponential struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64
}

// DefaultExponential matches the default retry settings of the config
func DefaultExponential() *Exponential {
	return &Exponential{Base: 2 * time.Second, Max: 30 * time.Second, Factor: 2, Jitter: 0.1}
}

func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	d := float64(e.Base) * math.Pow(e.Factor, float64(attempt-1))
	if e.Max > 0 {
		d = math.Min(d, float64(e.Max))
	}
	if e.Jitter > 0 {
		d += d * e.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(math.Max(d, 0))
}

// Constant pauses for the same duration after every failure
type Constant time.Duration

func (c Constant) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return time.Duration(c)
}

// Wait blocks for d or until ctx is done, returning ctx.Err() in the latter case
func Wait(ctx context.Context, d time.Duration) error {
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
