package session

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/policy"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
)

// #region config

// Config is the full configuration of one discovery session. Immutable for
// the session's lifetime; validated before any iteration runs and echoed
// verbatim into the session log.
type Config struct {
	Alpha float64 `json:"alpha"` // Type I error target, in (0,1)
	Beta  float64 `json:"beta"`  // Type II error target, in (0,1)

	MaxIterations int           `json:"max_iterations"`
	MaxDuration   time.Duration `json:"max_duration"` // 0 = unbounded

	ProbeDuration   time.Duration `json:"probe_duration"`
	ListenDuration  time.Duration `json:"listen_duration"`
	InterProbeDelay time.Duration `json:"inter_probe_delay"`
	CaptureGrace    time.Duration `json:"capture_grace"` // slack before a capture is failed

	SelectionMode policy.Mode  `json:"selection_mode"`
	FixedSequence []probe.Type `json:"fixed_sequence,omitempty"`

	AnomalySigma     float64 `json:"anomaly_sigma"`
	ClampMagnitude   float64 `json:"clamp_magnitude"`
	CorrelationShift float64 `json:"correlation_shift"`

	BaselineSamples  int           `json:"baseline_samples"`
	BaselineDuration time.Duration `json:"baseline_duration"` // 0 = use ListenDuration
}

// DefaultConfig mirrors the standard experiment parameters.
func DefaultConfig() Config {
	return Config{
		Alpha:            0.01,
		Beta:             0.01,
		MaxIterations:    100,
		MaxDuration:      0,
		ProbeDuration:    5 * time.Second,
		ListenDuration:   15 * time.Second,
		InterProbeDelay:  10 * time.Second,
		CaptureGrace:     2 * time.Second,
		SelectionMode:    policy.ModeKLOptimal,
		AnomalySigma:     3.0,
		ClampMagnitude:   20.0,
		CorrelationShift: 0.5,
		BaselineSamples:  5,
	}
}

// #endregion config

// #region validate

// Validate checks every field the orchestrator depends on. Returns a
// *faults.ConfigurationError on the first violation.
func (c Config) Validate() error {
	if !(c.Alpha > 0 && c.Alpha < 1) {
		return &faults.ConfigurationError{Field: "alpha", Detail: fmt.Sprintf("must be in (0,1), got %v", c.Alpha)}
	}
	if !(c.Beta > 0 && c.Beta < 1) {
		return &faults.ConfigurationError{Field: "beta", Detail: fmt.Sprintf("must be in (0,1), got %v", c.Beta)}
	}
	if c.MaxIterations < 1 {
		return &faults.ConfigurationError{Field: "max_iterations", Detail: fmt.Sprintf("must be >= 1, got %d", c.MaxIterations)}
	}
	if c.MaxDuration < 0 {
		return &faults.ConfigurationError{Field: "max_duration", Detail: "must be >= 0"}
	}
	if c.ProbeDuration <= 0 {
		return &faults.ConfigurationError{Field: "probe_duration", Detail: "must be > 0"}
	}
	if c.ListenDuration <= 0 {
		return &faults.ConfigurationError{Field: "listen_duration", Detail: "must be > 0"}
	}
	if c.InterProbeDelay <= 0 {
		return &faults.ConfigurationError{Field: "inter_probe_delay", Detail: "must be > 0"}
	}
	if c.CaptureGrace < 0 {
		return &faults.ConfigurationError{Field: "capture_grace", Detail: "must be >= 0"}
	}
	switch c.SelectionMode {
	case policy.ModeKLOptimal, policy.ModeRoundRobin:
	case policy.ModeFixedSequence:
		if len(c.FixedSequence) == 0 {
			return &faults.ConfigurationError{Field: "fixed_sequence", Detail: "required in fixed_sequence mode"}
		}
	default:
		return &faults.ConfigurationError{Field: "selection_mode", Detail: fmt.Sprintf("unknown mode %q", c.SelectionMode)}
	}
	if c.AnomalySigma <= 0 {
		return &faults.ConfigurationError{Field: "anomaly_sigma", Detail: "must be > 0"}
	}
	if c.ClampMagnitude <= 0 {
		return &faults.ConfigurationError{Field: "clamp_magnitude", Detail: "must be > 0"}
	}
	if c.CorrelationShift <= 0 || c.CorrelationShift > 1 {
		return &faults.ConfigurationError{Field: "correlation_shift", Detail: "must be in (0,1]"}
	}
	if c.BaselineSamples < 2 {
		return &faults.ConfigurationError{Field: "baseline_samples", Detail: fmt.Sprintf("must be >= 2, got %d", c.BaselineSamples)}
	}
	if c.BaselineDuration < 0 {
		return &faults.ConfigurationError{Field: "baseline_duration", Detail: "must be >= 0"}
	}
	return nil
}

// baselineWindow returns the effective baseline capture duration.
func (c Config) baselineWindow() time.Duration {
	if c.BaselineDuration > 0 {
		return c.BaselineDuration
	}
	return c.ListenDuration
}

// captureBudget bounds one full transmit/settle/listen cycle. A collaborator
// call exceeding it is a failure, never an indefinite wait.
func (c Config) captureBudget() time.Duration {
	return c.ProbeDuration + c.ListenDuration + c.InterProbeDelay + c.CaptureGrace
}

// #endregion validate
