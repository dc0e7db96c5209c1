package backoff

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", cfg.BaseDelay)
	}
	if cfg.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", cfg.MaxDelay)
	}
	if cfg.JitterMax != 100*time.Millisecond {
		t.Errorf("JitterMax = %v, want 100ms", cfg.JitterMax)
	}
	if cfg.CapExponent != 4 {
		t.Errorf("CapExponent = %d, want 4", cfg.CapExponent)
	}
}

func TestPolicy_Deterministic(t *testing.T) {
	p := New(Config{BaseDelay: time.Second, MaxDelay: time.Minute, CapExponent: 4})

	tests := []struct {
		retry uint
		want  time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 16 * time.Second}, // exponent capped
		{100, 16 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Deterministic(tt.retry); got != tt.want {
			t.Errorf("Deterministic(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestPolicy_MaxDelayCaps(t *testing.T) {
	p := New(Config{BaseDelay: time.Second, MaxDelay: 5 * time.Second, CapExponent: 4})

	if got := p.Deterministic(2); got != 4*time.Second {
		t.Errorf("Deterministic(2) = %v, want 4s", got)
	}
	if got := p.Deterministic(3); got != 5*time.Second {
		t.Errorf("Deterministic(3) = %v, want 5s (capped)", got)
	}
}

func TestPolicy_NextDelayBounds(t *testing.T) {
	cfg := Config{
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		JitterMax:   50 * time.Millisecond,
		CapExponent: 4,
	}
	p := New(cfg, WithRand(rand.New(rand.NewPCG(1, 2))))

	for retry := uint(0); retry < 20; retry++ {
		for i := 0; i < 50; i++ {
			got := p.NextDelay(retry)
			if got > cfg.MaxDelay+cfg.JitterMax {
				t.Fatalf("NextDelay(%d) = %v exceeds max+jitter %v", retry, got, cfg.MaxDelay+cfg.JitterMax)
			}
			if got < p.Deterministic(retry) {
				t.Fatalf("NextDelay(%d) = %v below deterministic %v", retry, got, p.Deterministic(retry))
			}
		}
	}
}

func TestPolicy_DeterministicNonDecreasing(t *testing.T) {
	p := New(DefaultConfig())

	prev := time.Duration(0)
	for retry := uint(0); retry < 10; retry++ {
		d := p.Deterministic(retry)
		if d < prev {
			t.Fatalf("Deterministic(%d) = %v < previous %v", retry, d, prev)
		}
		prev = d
	}
}

func TestPolicy_NeverZero(t *testing.T) {
	p := New(Config{})
	if got := p.NextDelay(0); got < MinDelay {
		t.Errorf("NextDelay(0) = %v, want >= %v", got, MinDelay)
	}

	p = New(Config{BaseDelay: -time.Second, MaxDelay: time.Second})
	if got := p.NextDelay(3); got <= 0 {
		t.Errorf("NextDelay(3) = %v, want positive", got)
	}
}

func TestPolicy_Overflow(t *testing.T) {
	p := New(Config{BaseDelay: time.Duration(1 << 61), MaxDelay: time.Hour, CapExponent: 10})
	if got := p.Deterministic(10); got != time.Hour {
		t.Errorf("Deterministic(10) = %v, want 1h (capped, no overflow)", got)
	}
}
