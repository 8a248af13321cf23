package evidence

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
)

// #region mapper-config

// MapperConfig parameterizes the likelihood model. The Gaussian family and
// the conditional-independence assumption between the anomaly and correlation
// dimensions are deliberate, documented simplifications; changing them changes
// the statistical meaning of the session's alpha/beta guarantees, so they are
// surfaced here instead of being buried in the computation.
type MapperConfig struct {
	ClampMagnitude   float64 // max |LLR| contribution from a single observation
	AnomalySigma     float64 // H1 mean shift of the anomaly score, in sigma units
	CorrelationShift float64 // H1 shift of the correlation magnitude over baseline
}

// DefaultMapperConfig returns the standard model parameters.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		ClampMagnitude:   20,
		AnomalySigma:     3,
		CorrelationShift: 0.5,
	}
}

// #endregion mapper-config

// #region mapper

// Mapper converts one (probe, metrics) pair into a finite log-likelihood
// ratio contribution for H1 vs H0. Pure computation over its inputs plus the
// baseline model frozen at session start; no hidden state, so every logged
// iteration can be replayed offline.
type Mapper struct {
	base observe.Baseline
	cfg  MapperConfig
}

// NewMapper creates a mapper over a fitted baseline.
func NewMapper(base observe.Baseline, cfg MapperConfig) (*Mapper, error) {
	if cfg.ClampMagnitude <= 0 {
		return nil, &faults.ConfigurationError{
			Field:  "clamp_magnitude",
			Detail: fmt.Sprintf("must be > 0, got %v", cfg.ClampMagnitude),
		}
	}
	if cfg.AnomalySigma <= 0 {
		return nil, &faults.ConfigurationError{
			Field:  "anomaly_sigma",
			Detail: fmt.Sprintf("must be > 0, got %v", cfg.AnomalySigma),
		}
	}
	if cfg.CorrelationShift <= 0 || cfg.CorrelationShift > 1 {
		return nil, &faults.ConfigurationError{
			Field:  "correlation_shift",
			Detail: fmt.Sprintf("must be in (0,1], got %v", cfg.CorrelationShift),
		}
	}
	if base.Windows == 0 {
		return nil, &faults.ConfigurationError{Field: "baseline", Detail: "not fitted"}
	}
	if base.CorrSpread <= 0 {
		return nil, &faults.ConfigurationError{Field: "baseline", Detail: "correlation spread must be > 0"}
	}
	return &Mapper{base: base, cfg: cfg}, nil
}

// LLR computes ln(P(metrics|H1) / P(metrics|H0)).
//
// Anomaly dimension: the score is already normalized to sigma units, so
// H0 ~ N(0,1) and H1 ~ N(mu,1) with mu = AnomalySigma, giving the Gaussian
// ratio y*mu - mu^2/2. Correlation dimension: H0 centers the correlation
// magnitude on the baseline's silent-window correlation, H1 shifts it by
// CorrelationShift over the baseline spread. The two contributions combine
// additively. Silence probes transmit nothing, so their correlation dimension
// carries no evidence.
//
// Non-finite ratios from degenerate densities are clamped to
// +/-ClampMagnitude; a NaN cannot be clamped and yields a
// NumericalInstabilityError.
func (m *Mapper) LLR(d probe.Descriptor, obs observe.Metrics) (float64, error) {
	mu := m.cfg.AnomalySigma
	llr := obs.AnomalyScore*mu - mu*mu/2

	if d.Type != probe.TypeSilence {
		shift := m.cfg.CorrelationShift
		spread := m.base.CorrSpread
		y := math.Abs(obs.Correlation) - math.Abs(m.base.CorrMean)
		llr += (y*shift - shift*shift/2) / (spread * spread)
	}

	if math.IsNaN(llr) {
		return 0, &faults.NumericalInstabilityError{Value: llr}
	}
	if llr > m.cfg.ClampMagnitude {
		llr = m.cfg.ClampMagnitude
	}
	if llr < -m.cfg.ClampMagnitude {
		llr = -m.cfg.ClampMagnitude
	}
	return llr, nil
}

// #endregion mapper
