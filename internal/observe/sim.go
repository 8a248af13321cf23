package observe

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
)

// #region sim-config

// SimConfig parameterizes the synthetic transceiver.
type SimConfig struct {
	Seed             int64
	Adaptive         bool    // if true, the environment echoes probe energy back
	NoisePower       float64 // mean power of the background noise
	ResponseGain     float64 // probe echo amplitude when Adaptive
	SamplesPerSecond int     // envelope sample rate
}

// DefaultSimConfig returns a quiet environment with a clearly detectable
// adaptive echo when enabled.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Seed:             1,
		Adaptive:         false,
		NoisePower:       1.0,
		ResponseGain:     2.0,
		SamplesPerSecond: 64,
	}
}

// #endregion sim-config

// #region sim-transceiver

// SimTransceiver is a deterministic synthetic Transceiver. It lets full
// sessions run and test without devices: given the same seed and call
// sequence it produces identical windows. Scripted failures support fault
// injection in tests.
type SimTransceiver struct {
	cfg      SimConfig
	rng      *rand.Rand
	failures []error
}

// NewSimTransceiver creates a simulator seeded from cfg.Seed.
func NewSimTransceiver(cfg SimConfig) *SimTransceiver {
	if cfg.SamplesPerSecond <= 0 {
		cfg.SamplesPerSecond = 64
	}
	if cfg.NoisePower <= 0 {
		cfg.NoisePower = 1.0
	}
	return &SimTransceiver{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// FailNext queues errors to be returned by upcoming Capture calls, one per
// call, before any samples are drawn.
func (s *SimTransceiver) FailNext(errs ...error) {
	s.failures = append(s.failures, errs...)
}

// Capture synthesizes the probe reference envelope and a response window.
func (s *SimTransceiver) Capture(ctx context.Context, d probe.Descriptor, probeDur, listenDur, settle time.Duration) (Window, error) {
	if err := ctx.Err(); err != nil {
		return Window{}, &faults.HardwareError{Op: "capture", Err: err}
	}
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		var hw *faults.HardwareError
		if errors.As(err, &hw) {
			return Window{}, err
		}
		return Window{}, &faults.HardwareError{Op: "capture", Err: err}
	}

	ref := s.synthesize(d, probeDur)
	resp := s.noise(listenDur)
	if s.cfg.Adaptive && d.Type != probe.TypeSilence {
		// Echo the probe envelope into the listen window with the configured
		// gain. The echo is what makes H1 sessions decidable.
		for i := range resp {
			resp[i] += s.cfg.ResponseGain * ref[i%len(ref)]
		}
	}

	return Window{Ref: ref, Resp: resp, SampleRate: s.cfg.SamplesPerSecond}, nil
}

// CaptureBaseline returns a noise-only window.
func (s *SimTransceiver) CaptureBaseline(ctx context.Context, dur time.Duration) (Window, error) {
	if err := ctx.Err(); err != nil {
		return Window{}, &faults.HardwareError{Op: "baseline", Err: err}
	}
	return Window{Resp: s.noise(dur), SampleRate: s.cfg.SamplesPerSecond}, nil
}

// #endregion sim-transceiver

// #region synthesis

// synthesize renders a probe descriptor into an envelope.
func (s *SimTransceiver) synthesize(d probe.Descriptor, dur time.Duration) []float64 {
	n := s.sampleCount(dur)
	env := make([]float64, n)

	if d.Type == probe.TypeSilence {
		return env
	}

	sr := float64(s.cfg.SamplesPerSecond)
	switch {
	case len(d.Params.Gating) > 0:
		// Pulse train: short unit pulses at the gating intervals.
		t := 0.0
		for _, gap := range d.Params.Gating {
			start := int(t * sr)
			end := start + int(0.1*sr)
			if end >= n {
				end = n
			}
			for i := start; i < end && i < n; i++ {
				env[i] = 1.0
			}
			t += gap
			if int(t*sr) >= n {
				break
			}
		}
	case d.Params.ModulationHz > 0:
		depth := d.Params.ModulationDepth
		if depth <= 0 || depth > 1 {
			depth = 1
		}
		for i := 0; i < n; i++ {
			ts := float64(i) / sr
			env[i] = 0.5 * (1 + depth*math.Sin(2*math.Pi*d.Params.ModulationHz*ts))
		}
	default:
		for i := range env {
			env[i] = 1.0
		}
	}
	return env
}

// noise draws a gaussian envelope with the configured mean power.
func (s *SimTransceiver) noise(dur time.Duration) []float64 {
	n := s.sampleCount(dur)
	out := make([]float64, n)
	amp := math.Sqrt(s.cfg.NoisePower)
	for i := range out {
		out[i] = s.rng.NormFloat64() * amp
	}
	return out
}

func (s *SimTransceiver) sampleCount(dur time.Duration) int {
	n := int(dur.Seconds() * float64(s.cfg.SamplesPerSecond))
	if n < 1 {
		n = 1
	}
	return n
}

// #endregion synthesis
