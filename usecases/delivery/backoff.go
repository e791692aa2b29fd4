package delivery

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"formrelay/config"
)

// RetryPolicy computes the delay before a job's next delivery attempt.
type RetryPolicy struct {
	initial    time.Duration
	multiplier float64
	max        time.Duration
}

func NewRetryPolicy(cfg config.DeliveryConfig) *RetryPolicy {
	return &RetryPolicy{
		initial:    cfg.BackoffInitial,
		multiplier: cfg.BackoffMultiplier,
		max:        cfg.BackoffMax,
	}
}

// NextInterval returns the backoff delay after the attempt that brought the
// job to the given retry count. Randomization is disabled so the curve is
// deterministic and never decreases between consecutive retries.
func (p *RetryPolicy) NextInterval(retryCount int) time.Duration {
	curve := backoff.NewExponentialBackOff()
	curve.InitialInterval = p.initial
	curve.Multiplier = p.multiplier
	curve.MaxInterval = p.max
	curve.RandomizationFactor = 0
	curve.MaxElapsedTime = 0 // never give up; the retry ceiling is enforced elsewhere
	curve.Reset()

	next := curve.NextBackOff()
	for i := 0; i < retryCount; i++ {
		next = curve.NextBackOff()
	}
	return next
}
