package scrape

import (
	"context"
	"time"
)

// Retry defaults. The delay is fixed between attempts, not exponential:
// the failure mode here is rate limiting and bot detection, where a
// predictable pause with a rotated identity outperforms rapid backoff.
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 5 * time.Second
)

// defaultIdentities are the request identities rotated across retry
// attempts. Rotation is round-robin by attempt number.
var defaultIdentities = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// RetryPolicy controls how many times a fetch is attempted and how long to
// wait between attempts. The zero value uses the package defaults.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// total attempt count is MaxRetries+1. Negative means no retries.
	MaxRetries int

	// Delay is the fixed pause between attempts.
	Delay time.Duration

	// Identities are rotated round-robin across attempts as the request
	// identity. Empty uses a built-in set.
	Identities []string

	set bool
}

// NewRetryPolicy returns a policy with explicit settings. Distinguishes an
// explicit MaxRetries of 0 from the unset zero value.
func NewRetryPolicy(maxRetries int, delay time.Duration) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Delay: delay, set: true}
}

func (p RetryPolicy) maxRetries() int {
	if p.set || p.MaxRetries != 0 {
		if p.MaxRetries < 0 {
			return 0
		}
		return p.MaxRetries
	}
	return DefaultMaxRetries
}

func (p RetryPolicy) delay() time.Duration {
	if p.Delay > 0 {
		return p.Delay
	}
	if p.set {
		return 0
	}
	return DefaultRetryDelay
}

// Attempts is the total number of fetch attempts the policy allows.
func (p RetryPolicy) Attempts() int {
	return p.maxRetries() + 1
}

// Identity returns the request identity for a zero-based attempt number.
func (p RetryPolicy) Identity(attempt int) string {
	ids := p.Identities
	if len(ids) == 0 {
		ids = defaultIdentities
	}
	if attempt < 0 {
		attempt = 0
	}
	return ids[attempt%len(ids)]
}

// Do runs fn up to Attempts() times, pausing Delay between attempts and
// rotating the identity passed to fn. It returns the attempt count actually
// used along with the last error. Cancellation is honored between attempts:
// a context error is returned immediately without consuming further
// attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, identity string) error) (attempts int, err error) {
	total := p.Attempts()
	for i := 0; i < total; i++ {
		if cerr := ctx.Err(); cerr != nil {
			if err == nil {
				err = cerr
			}
			return attempts, err
		}
		attempts++
		err = fn(ctx, p.Identity(i))
		if err == nil {
			return attempts, nil
		}
		if i < total-1 {
			if werr := sleep(ctx, p.delay()); werr != nil {
				return attempts, err
			}
		}
	}
	return attempts, err
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
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
