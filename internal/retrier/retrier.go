package retrier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	minMaxAttempts = 1
	minBaseDelay   = time.Millisecond
	minFactor      = 1.0
	maxJitter      = 1.0
)

// ExponentialBackoff multiplies the delay by the factor on every attempt.
// LinearBackoff grows the delay by the base delay on every attempt.
// FibonacciBackoff grows the delay along the Fibonacci sequence.
const (
	ExponentialBackoff BackoffStrategy = iota
	LinearBackoff
	FibonacciBackoff
)

var (
	// ErrInvalidMaxAttempts is returned when the max attempts parameter is invalid.
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")
	// ErrInvalidBaseDelay is returned when the base delay parameter is invalid.
	ErrInvalidBaseDelay = errors.New("base delay must be at least 1ms")
	// ErrInvalidFactor is returned when the factor parameter is invalid.
	ErrInvalidFactor = errors.New("factor must be at least 1.0")
	// ErrInvalidJitter is returned when the jitter parameter is invalid.
	ErrInvalidJitter = errors.New("jitter must be between 0 and 1")
)

// BackoffStrategy defines how the delay between attempts grows.
type BackoffStrategy int

// Retrier runs a function until it succeeds, fails permanently, or runs out of attempts.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	factor      float64
	jitter      float64
	strategy    BackoffStrategy

	fibMu          sync.Mutex
	fibonacciCache []time.Duration

	// TempErrorFunc decides whether an error is worth retrying. IsTemporary is used when nil.
	TempErrorFunc func(error) bool
}

// NewRetrier creates a new Retrier instance.
// Parameters:
// - maxAttempts: total number of attempts, the first call included.
// - baseDelay: delay before the first retry.
// - maxDelay: upper bound for any single delay before jitter.
// - factor: multiplier for exponential backoff.
// - jitter: fraction of the delay added at random to spread retries.
// - strategy: ExponentialBackoff, LinearBackoff or FibonacciBackoff.
// - tempErrorFunc: optional classifier for retryable errors.
func NewRetrier(maxAttempts int, baseDelay, maxDelay time.Duration, factor, jitter float64, strategy BackoffStrategy, tempErrorFunc func(error) bool) (*Retrier, error) {
	if maxAttempts < minMaxAttempts {
		return nil, ErrInvalidMaxAttempts
	}
	if baseDelay < minBaseDelay {
		return nil, ErrInvalidBaseDelay
	}
	if factor < minFactor {
		return nil, ErrInvalidFactor
	}
	if jitter < 0 || jitter > maxJitter {
		return nil, ErrInvalidJitter
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}

	return &Retrier{
		maxAttempts:    maxAttempts,
		baseDelay:      baseDelay,
		maxDelay:       maxDelay,
		factor:         factor,
		jitter:         jitter,
		strategy:       strategy,
		fibonacciCache: []time.Duration{baseDelay, baseDelay},
		TempErrorFunc:  tempErrorFunc,
	}, nil
}

// Run executes fn, retrying temporary errors with backoff.
func (r *Retrier) Run(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !r.isTemporary(err) {
			return err
		}

		if attempt == r.maxAttempts-1 {
			break
		}

		timer := time.NewTimer(r.calculateDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}

func (r *Retrier) isTemporary(err error) bool {
	if r.TempErrorFunc != nil {
		return r.TempErrorFunc(err)
	}
	return IsTemporary(err)
}

// calculateDelay computes the delay before the retry that follows attempt.
func (r *Retrier) calculateDelay(attempt int) time.Duration {
	var delay float64

	switch r.strategy {
	case LinearBackoff:
		delay = float64(r.baseDelay) * float64(attempt+1)
	case FibonacciBackoff:
		delay = float64(r.getFibonacciDelay(attempt))
	default:
		delay = float64(r.baseDelay) * math.Pow(r.factor, float64(attempt))
	}

	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}

	delay += rand.Float64() * r.jitter * delay
	if delay > float64(time.Hour) {
		delay = float64(time.Hour)
	}
	return time.Duration(delay)
}

// getFibonacciDelay returns the delay for the given attempt using the Fibonacci sequence.
func (r *Retrier) getFibonacciDelay(attempt int) time.Duration {
	r.fibMu.Lock()
	defer r.fibMu.Unlock()

	for len(r.fibonacciCache) <= attempt {
		next := r.fibonacciCache[len(r.fibonacciCache)-1] + r.fibonacciCache[len(r.fibonacciCache)-2]
		if next > r.maxDelay {
			next = r.maxDelay
		}
		r.fibonacciCache = append(r.fibonacciCache, next)
	}
	return r.fibonacciCache[attempt]
}
