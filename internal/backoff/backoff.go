package backoff

import (
	"math/rand/v2"
	"time"
)

// MinDelay is the floor returned by NextDelay.
const MinDelay = time.Millisecond

// Config holds backoff parameters.
type Config struct {
	BaseDelay   time.Duration // First step of the exponential sequence
	MaxDelay    time.Duration // Ceiling for the deterministic component
	JitterMax   time.Duration // Upper bound of the uniform jitter
	CapExponent uint          // Exponent stops growing here
}

// DefaultConfig returns the defaults used by the tracker.
func DefaultConfig() Config {
	return Config{
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		JitterMax:   100 * time.Millisecond,
		CapExponent: 4,
	}
}

// Policy computes reconnect delays. It holds no retry state; callers pass
// the retry count in.
type Policy struct {
	cfg  Config
	rand *rand.Rand
}

// Option configures a Policy.
type Option func(*Policy)

// WithRand sets the random source used for jitter. The source is not
// safe for concurrent use, so a Policy built with it must stay with one
// goroutine.
func WithRand(r *rand.Rand) Option {
	return func(p *Policy) {
		p.rand = r
	}
}

// New creates a Policy.
func New(cfg Config, opts ...Option) *Policy {
	p := &Policy{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the policy parameters.
func (p *Policy) Config() Config {
	return p.cfg
}

// Deterministic returns min(MaxDelay, BaseDelay * 2^min(retryCount, CapExponent)).
func (p *Policy) Deterministic(retryCount uint) time.Duration {
	exp := retryCount
	if exp > p.cfg.CapExponent {
		exp = p.cfg.CapExponent
	}
	if exp > 62 {
		exp = 62
	}

	base := p.cfg.BaseDelay
	if base < 0 {
		base = 0
	}

	limit := p.cfg.MaxDelay
	// base << exp would overflow int64 past this point.
	if base > time.Duration(int64(^uint64(0)>>1)>>exp) {
		return limit
	}

	delay := base << exp
	if limit > 0 && delay > limit {
		delay = limit
	}
	return delay
}

// NextDelay returns the delay to wait before reconnect attempt retryCount.
// The result is in [Deterministic(retryCount), MaxDelay+JitterMax] and is
// never below MinDelay.
func (p *Policy) NextDelay(retryCount uint) time.Duration {
	delay := p.Deterministic(retryCount) + p.jitter()
	if delay < MinDelay {
		delay = MinDelay
	}
	return delay
}

func (p *Policy) jitter() time.Duration {
	if p.cfg.JitterMax <= 0 {
		return 0
	}
	n := int64(p.cfg.JitterMax) + 1
	if p.rand != nil {
		return time.Duration(p.rand.Int64N(n))
	}
	return time.Duration(rand.Int64N(n))
}
