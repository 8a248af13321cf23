package observe

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
)

// #region extractor

const (
	minBaselineWindows = 2
	noiseFloorQuantile = 0.25
	powerEpsilon       = 1e-12
	// Floor for the baseline correlation spread. Two silent windows can be
	// near-identical in a simulator, which would make the correlation
	// dimension of the likelihood degenerate.
	minCorrSpread = 0.05
)

// Extractor turns raw observation windows into scalar metrics. Pure
// computation over its inputs plus the frozen baseline; safe to share.
type Extractor struct {
	sigmaThreshold float64
}

// NewExtractor creates an extractor with the given anomaly sigma threshold.
func NewExtractor(sigmaThreshold float64) (*Extractor, error) {
	if sigmaThreshold <= 0 {
		return nil, &faults.ConfigurationError{
			Field:  "anomaly_sigma",
			Detail: fmt.Sprintf("must be > 0, got %v", sigmaThreshold),
		}
	}
	return &Extractor{sigmaThreshold: sigmaThreshold}, nil
}

// #endregion extractor

// #region fit

// Fit builds the baseline model from silent (no-transmission) windows.
// The power model is fitted over per-window mean power; the correlation model
// over correlations between consecutive windows.
func (e *Extractor) Fit(windows []Window) (Baseline, error) {
	if len(windows) < minBaselineWindows {
		return Baseline{}, &faults.AnalysisError{
			Reason: fmt.Sprintf("need at least %d baseline windows, got %d", minBaselineWindows, len(windows)),
		}
	}

	powers := make([]float64, len(windows))
	for i, w := range windows {
		if len(w.Resp) == 0 {
			return Baseline{}, &faults.AnalysisError{Reason: fmt.Sprintf("baseline window %d is empty", i)}
		}
		powers[i] = meanPower(w.Resp)
	}
	pMean, pStd := meanStd(powers)

	corrs := make([]float64, 0, len(windows)-1)
	for i := 1; i < len(windows); i++ {
		corrs = append(corrs, pearson(windows[i-1].Resp, windows[i].Resp))
	}
	cMean, cStd := meanStd(corrs)
	if cStd < minCorrSpread {
		cStd = minCorrSpread
	}

	return Baseline{
		PowerMean:  pMean,
		PowerStd:   pStd,
		CorrMean:   cMean,
		CorrSpread: cStd,
		Windows:    len(windows),
	}, nil
}

// #endregion fit

// #region extract

// Extract computes the per-iteration metrics for one observation window.
// The probe descriptor is carried for contract symmetry with the evidence
// mapper; the correlation uses the window's own reference envelope.
func (e *Extractor) Extract(w Window, d probe.Descriptor, base Baseline) (Metrics, error) {
	if len(w.Resp) == 0 {
		return Metrics{}, &faults.AnalysisError{Reason: "empty capture"}
	}
	if base.Windows < minBaselineWindows {
		return Metrics{}, &faults.AnalysisError{Reason: "baseline model not fitted"}
	}

	powers := make([]float64, len(w.Resp))
	for i, s := range w.Resp {
		powers[i] = s * s
	}
	pMean, pStd := meanStd(powers)

	score := (pMean - base.PowerMean) / (base.PowerStd + powerEpsilon)

	corr := 0.0
	if len(w.Ref) > 0 {
		corr = pearson(w.Ref, w.Resp)
	}

	return Metrics{
		PowerMean:    pMean,
		PowerStd:     pStd,
		SNRdB:        snrDB(powers),
		Correlation:  corr,
		AnomalyScore: score,
		Anomaly:      score > e.sigmaThreshold,
	}, nil
}

// #endregion extract

// #region helpers

// meanPower returns the mean squared amplitude of an envelope.
func meanPower(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return sum / float64(len(samples))
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

// snrDB estimates SNR as peak power over the noise floor quantile.
func snrDB(powers []float64) float64 {
	sorted := make([]float64, len(powers))
	copy(sorted, powers)
	sort.Float64s(sorted)

	floor := sorted[int(float64(len(sorted)-1)*noiseFloorQuantile)]
	peak := sorted[len(sorted)-1]

	ratio := peak / (floor + powerEpsilon)
	if ratio <= 0 {
		return 0
	}
	return 10 * math.Log10(ratio)
}

// pearson computes the Pearson correlation of the magnitudes of two
// envelopes, truncated to the shorter length. Returns 0 for degenerate
// inputs.
func pearson(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += math.Abs(a[i])
		sumB += math.Abs(b[i])
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := math.Abs(a[i]) - meanA
		db := math.Abs(b[i]) - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	denom := math.Sqrt(varA) * math.Sqrt(varB)
	if denom < powerEpsilon {
		return 0
	}
	c := cov / denom
	if math.IsNaN(c) {
		return 0
	}
	return c
}

// #endregion helpers
