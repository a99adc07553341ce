// Package backoff provides bounded exponential delays for retry loops.
package backoff

import (
	"context"
	"errors"
	"time"
)

var ErrRetriesExceeded = errors.New("retries exceeded")

// Policy is a bounded exponential backoff. The zero value is unusable; use
// New or fill every field.
type Policy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Retries    int
}

func New() Policy {
	return Policy{
		Initial:    50 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 2,
		Retries:    8,
	}
}

// Delay sleeps for the attempt's backoff interval, or returns early when ctx
// is canceled. attempt counts from 0. Attempts past the policy's budget
// return ErrRetriesExceeded without sleeping.
func (p Policy) Delay(ctx context.Context, attempt int) error {
	if attempt >= p.Retries {
		return ErrRetriesExceeded
	}
	d := p.Initial
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if d >= p.Max {
			d = p.Max
			break
		}
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
