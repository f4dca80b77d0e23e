// Package mocknet stands in for remote services that do not exist yet. Every
// call waits a random latency and fails now and then.
package mocknet

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

var ErrNetwork = errors.New("network error")

const (
	DefaultMinDelay    = 500 * time.Millisecond
	DefaultMaxDelay    = 1500 * time.Millisecond
	DefaultFailureRate = 0.05
)

type Simulator struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	FailureRate float64

	// Float64 returns values in [0, 1). Defaults to math/rand/v2.
	Float64 func() float64
}

func New(minDelay, maxDelay time.Duration, failureRate float64) *Simulator {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Simulator{MinDelay: minDelay, MaxDelay: maxDelay, FailureRate: failureRate}
}

func Default() *Simulator {
	return New(DefaultMinDelay, DefaultMaxDelay, DefaultFailureRate)
}

func (s *Simulator) float() float64 {
	if s.Float64 != nil {
		return s.Float64()
	}
	return rand.Float64()
}

func (s *Simulator) delay() time.Duration {
	spread := s.MaxDelay - s.MinDelay
	if spread <= 0 {
		return s.MinDelay
	}
	return s.MinDelay + time.Duration(s.float()*float64(spread))
}

// Wait blocks for one simulated round trip and reports ErrNetwork on a
// simulated failure. A done context ends the wait early with its error.
func (s *Simulator) Wait(ctx context.Context) error {
	if d := s.delay(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if s.float() < s.FailureRate {
		return ErrNetwork
	}
	return nil
}

// Call runs fn after a simulated round trip. It never retries.
func Call[T any](ctx context.Context, s *Simulator, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := s.Wait(ctx); err != nil {
		return zero, err
	}
	return fn(ctx)
}
