package retry

import "time"

// Policy bundles the retry budget and backoff curve used by the offline
// submission queue. Emergencies are time-critical, so the defaults back off
// quickly but cap low: a reconnect should never wait minutes to drain.
type Policy struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	JitterFactor      float64       `yaml:"jitter_factor"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       6,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        2 * time.Minute,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.2,
	}
}

// ShouldRetry reports whether another automatic attempt is allowed after
// attempt failures so far.
func (p Policy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

func (p Policy) NextDelay(attempt int) time.Duration {
	b := &Backoff{
		BaseDelay: p.InitialBackoff,
		MaxDelay:  p.MaxBackoff,
		Factor:    p.BackoffMultiplier,
		Jitter:    p.JitterFactor,
	}
	return b.NextDelay(attempt)
}
