package utils

import (
	"context"
	"time"
)

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff doubles Base on every attempt and caps the delay at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := b.Base << attempt
	if d <= 0 || (b.Max > 0 && d > b.Max) || attempt >= 62 {
		d = b.Max
	}
	return d
}

// Wait sleeps for the delay of the given attempt.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	return WaitFor(ctx, b.Delay(attempt))
}
