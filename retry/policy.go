// Package retry implements the retry-with-backoff and per-agent circuit
// breaker wrapper (C7) that sits between the parallel executor and every
// agent invocation.
package retry

import (
	"math/rand"
	"time"
)

// BackoffType selects the delay curve between retry attempts.
type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffLinear      BackoffType = "linear"
	BackoffFibonacci   BackoffType = "fibonacci"
)

// Policy computes the delay between attempt k and k+1, per §4.7.
type Policy struct {
	Type       BackoffType
	Base       time.Duration // default 1s
	MaxDelay   time.Duration // default 30s
	MaxRetries int           // default 3
}

// DefaultPolicy returns the spec's documented defaults.
func DefaultPolicy() Policy {
	return Policy{
		Type:       BackoffExponential,
		Base:       time.Second,
		MaxDelay:   30 * time.Second,
		MaxRetries: 3,
	}
}

// Delay returns the backoff duration before attempt k+1, including uniform
// jitter in [0, 0.1*delay].
func (p Policy) Delay(k int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = time.Second
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var raw time.Duration
	switch p.Type {
	case BackoffLinear:
		raw = base * time.Duration(k)
	case BackoffFibonacci:
		raw = base * time.Duration(fib(k+2))
	default:
		raw = base * time.Duration(1<<uint(k))
	}
	if raw > maxDelay {
		raw = maxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(raw)/10 + 1))
	return raw + jitter
}

// fib returns the nth Fibonacci number (fib(0)=0, fib(1)=1) computed
// iteratively; small n only, no memoization required.
func fib(n int) int {
	if n <= 1 {
		return n
	}
	a, b := 0, 1
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}
