package evidence

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
)

// helper: fitted-looking baseline.
func testBaseline() observe.Baseline {
	return observe.Baseline{
		PowerMean:  1.0,
		PowerStd:   0.2,
		CorrMean:   0.1,
		CorrSpread: 0.3,
		Windows:    5,
	}
}

// helper: mapper with default model parameters.
func newMapper(t *testing.T) *Mapper {
	t.Helper()
	m, err := NewMapper(testBaseline(), DefaultMapperConfig())
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	return m
}

func descriptor(ty probe.Type) probe.Descriptor {
	return probe.Descriptor{Type: ty, KLScore: 1}
}

// 1. Construction rejects bad model parameters and unfitted baselines.
func TestNewMapper_Validation(t *testing.T) {
	cases := []struct {
		name string
		base observe.Baseline
		cfg  MapperConfig
	}{
		{"zero clamp", testBaseline(), MapperConfig{ClampMagnitude: 0, AnomalySigma: 3, CorrelationShift: 0.5}},
		{"zero sigma", testBaseline(), MapperConfig{ClampMagnitude: 20, AnomalySigma: 0, CorrelationShift: 0.5}},
		{"shift too big", testBaseline(), MapperConfig{ClampMagnitude: 20, AnomalySigma: 3, CorrelationShift: 1.5}},
		{"unfitted baseline", observe.Baseline{}, DefaultMapperConfig()},
		{"degenerate spread", observe.Baseline{Windows: 5}, DefaultMapperConfig()},
	}
	for _, c := range cases {
		_, err := NewMapper(c.base, c.cfg)
		var cfg *faults.ConfigurationError
		if !errors.As(err, &cfg) {
			t.Errorf("%s: error %v, want ConfigurationError", c.name, err)
		}
	}
}

// 2. Boundedness: extreme metrics clamp to +/-ClampMagnitude, never beyond.
func TestLLR_Clamped(t *testing.T) {
	m := newMapper(t)
	clamp := DefaultMapperConfig().ClampMagnitude

	hi, err := m.LLR(descriptor(probe.TypeSchumannAM), observe.Metrics{AnomalyScore: 1e6, Correlation: 1})
	if err != nil {
		t.Fatalf("LLR: %v", err)
	}
	if hi != clamp {
		t.Errorf("high llr = %v, want clamp %v", hi, clamp)
	}

	lo, err := m.LLR(descriptor(probe.TypeSchumannAM), observe.Metrics{AnomalyScore: -1e6, Correlation: 0})
	if err != nil {
		t.Fatalf("LLR: %v", err)
	}
	if lo != -clamp {
		t.Errorf("low llr = %v, want -clamp %v", lo, -clamp)
	}
}

// 3. Evidence direction: a strong anomaly yields positive LLR, a quiet
// baseline-like observation yields negative LLR.
func TestLLR_Direction(t *testing.T) {
	m := newMapper(t)

	pos, err := m.LLR(descriptor(probe.TypeSchumannAM), observe.Metrics{AnomalyScore: 6, Correlation: 0.9})
	if err != nil {
		t.Fatalf("LLR: %v", err)
	}
	if pos <= 0 {
		t.Errorf("anomalous observation llr = %v, want > 0", pos)
	}

	neg, err := m.LLR(descriptor(probe.TypeSchumannAM), observe.Metrics{AnomalyScore: 0, Correlation: 0.1})
	if err != nil {
		t.Fatalf("LLR: %v", err)
	}
	if neg >= 0 {
		t.Errorf("baseline-like observation llr = %v, want < 0", neg)
	}
}

// 4. The silence control carries no correlation evidence: its LLR matches the
// pure anomaly term.
func TestLLR_SilenceDropsCorrelationTerm(t *testing.T) {
	m := newMapper(t)
	obs := observe.Metrics{AnomalyScore: 1.0, Correlation: 0.95}

	got, err := m.LLR(descriptor(probe.TypeSilence), obs)
	if err != nil {
		t.Fatalf("LLR: %v", err)
	}
	mu := DefaultMapperConfig().AnomalySigma
	want := obs.AnomalyScore*mu - mu*mu/2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("silence llr = %v, want anomaly-only %v", got, want)
	}

	withCorr, err := m.LLR(descriptor(probe.TypeSchumannAM), obs)
	if err != nil {
		t.Fatalf("LLR: %v", err)
	}
	if withCorr == got {
		t.Error("correlation term had no effect on a non-silence probe")
	}
}

// 5. NaN metrics produce a NumericalInstabilityError, not a clamped value.
func TestLLR_NaNMetrics(t *testing.T) {
	m := newMapper(t)
	_, err := m.LLR(descriptor(probe.TypeSchumannAM), observe.Metrics{AnomalyScore: math.NaN()})
	var ni *faults.NumericalInstabilityError
	if !errors.As(err, &ni) {
		t.Errorf("error = %v, want NumericalInstabilityError", err)
	}
}

// 6. Determinism: same inputs, same LLR, bitwise.
func TestLLR_Deterministic(t *testing.T) {
	m := newMapper(t)
	obs := observe.Metrics{AnomalyScore: 2.5, Correlation: 0.4}
	first, err := m.LLR(descriptor(probe.TypePrimeSequence), obs)
	if err != nil {
		t.Fatalf("LLR: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := m.LLR(descriptor(probe.TypePrimeSequence), obs)
		if err != nil {
			t.Fatalf("LLR: %v", err)
		}
		if got != first {
			t.Fatalf("run %d llr = %v, first = %v", i, got, first)
		}
	}
}
