package session

import (
	"errors"
	"testing"
	"time"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/policy"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
)

// 1. Defaults validate cleanly.
func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

// 2. Each violated bound produces a ConfigurationError naming the field.
func TestValidate_Violations(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*Config)
	}{
		{"alpha", func(c *Config) { c.Alpha = 0 }},
		{"alpha", func(c *Config) { c.Alpha = 1 }},
		{"beta", func(c *Config) { c.Beta = -0.1 }},
		{"max_iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"max_duration", func(c *Config) { c.MaxDuration = -time.Second }},
		{"probe_duration", func(c *Config) { c.ProbeDuration = 0 }},
		{"listen_duration", func(c *Config) { c.ListenDuration = 0 }},
		{"inter_probe_delay", func(c *Config) { c.InterProbeDelay = 0 }},
		{"capture_grace", func(c *Config) { c.CaptureGrace = -time.Second }},
		{"selection_mode", func(c *Config) { c.SelectionMode = "montecarlo" }},
		{"fixed_sequence", func(c *Config) { c.SelectionMode = policy.ModeFixedSequence }},
		{"anomaly_sigma", func(c *Config) { c.AnomalySigma = 0 }},
		{"clamp_magnitude", func(c *Config) { c.ClampMagnitude = -1 }},
		{"correlation_shift", func(c *Config) { c.CorrelationShift = 2 }},
		{"baseline_samples", func(c *Config) { c.BaselineSamples = 1 }},
		{"baseline_duration", func(c *Config) { c.BaselineDuration = -time.Second }},
	}
	for _, c := range cases {
		cfg := DefaultConfig()
		c.mutate(&cfg)
		err := cfg.Validate()
		var ce *faults.ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("%s: error %v, want ConfigurationError", c.field, err)
			continue
		}
		if ce.Field != c.field {
			t.Errorf("error names field %q, want %q", ce.Field, c.field)
		}
	}
}

// 3. Fixed-sequence mode validates once a sequence is supplied.
func TestValidate_FixedSequence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SelectionMode = policy.ModeFixedSequence
	cfg.FixedSequence = []probe.Type{probe.TypeSilence, probe.TypeSchumannAM}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid fixed-sequence config rejected: %v", err)
	}
}

// 4. Baseline window falls back to the listen duration when unset.
func TestBaselineWindow_Fallback(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.baselineWindow(); got != cfg.ListenDuration {
		t.Errorf("baselineWindow = %v, want listen duration %v", got, cfg.ListenDuration)
	}
	cfg.BaselineDuration = 3 * time.Second
	if got := cfg.baselineWindow(); got != 3*time.Second {
		t.Errorf("baselineWindow = %v, want 3s", got)
	}
}

// 5. Capture budget covers the full transmit/settle/listen cycle plus grace.
func TestCaptureBudget(t *testing.T) {
	cfg := DefaultConfig()
	want := cfg.ProbeDuration + cfg.ListenDuration + cfg.InterProbeDelay + cfg.CaptureGrace
	if got := cfg.captureBudget(); got != want {
		t.Errorf("captureBudget = %v, want %v", got, want)
	}
}
