package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/policy"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/session"
)

type fileConfig struct {
	Alpha            float64  `toml:"alpha"`
	Beta             float64  `toml:"beta"`
	MaxIterations    int      `toml:"max_iterations"`
	MaxDuration      string   `toml:"max_duration"`
	ProbeDuration    string   `toml:"probe_duration"`
	ListenDuration   string   `toml:"listen_duration"`
	InterProbeDelay  string   `toml:"inter_probe_delay"`
	CaptureGrace     string   `toml:"capture_grace"`
	SelectionMode    string   `toml:"selection_mode"`
	FixedSequence    []string `toml:"fixed_sequence"`
	AnomalySigma     float64  `toml:"anomaly_sigma"`
	ClampMagnitude   float64  `toml:"clamp_magnitude"`
	CorrelationShift float64  `toml:"correlation_shift"`
	BaselineSamples  int      `toml:"baseline_samples"`
	BaselineDuration string   `toml:"baseline_duration"`
}

// loadSessionConfig layers a TOML file over the defaults. Only keys present
// in the file override; validation happens later, in one place.
func loadSessionConfig(path string) (session.Config, error) {
	cfg := session.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return session.Config{}, fmt.Errorf("load session config: %w", err)
	}

	if meta.IsDefined("alpha") {
		cfg.Alpha = raw.Alpha
	}
	if meta.IsDefined("beta") {
		cfg.Beta = raw.Beta
	}
	if meta.IsDefined("max_iterations") {
		cfg.MaxIterations = raw.MaxIterations
	}
	if meta.IsDefined("max_duration") {
		d, err := parseDur("max_duration", raw.MaxDuration)
		if err != nil {
			return session.Config{}, err
		}
		cfg.MaxDuration = d
	}
	if meta.IsDefined("probe_duration") {
		d, err := parseDur("probe_duration", raw.ProbeDuration)
		if err != nil {
			return session.Config{}, err
		}
		cfg.ProbeDuration = d
	}
	if meta.IsDefined("listen_duration") {
		d, err := parseDur("listen_duration", raw.ListenDuration)
		if err != nil {
			return session.Config{}, err
		}
		cfg.ListenDuration = d
	}
	if meta.IsDefined("inter_probe_delay") {
		d, err := parseDur("inter_probe_delay", raw.InterProbeDelay)
		if err != nil {
			return session.Config{}, err
		}
		cfg.InterProbeDelay = d
	}
	if meta.IsDefined("capture_grace") {
		d, err := parseDur("capture_grace", raw.CaptureGrace)
		if err != nil {
			return session.Config{}, err
		}
		cfg.CaptureGrace = d
	}
	if meta.IsDefined("selection_mode") {
		cfg.SelectionMode = policy.Mode(strings.TrimSpace(raw.SelectionMode))
	}
	if meta.IsDefined("fixed_sequence") {
		cfg.FixedSequence = toProbeTypes(raw.FixedSequence)
	}
	if meta.IsDefined("anomaly_sigma") {
		cfg.AnomalySigma = raw.AnomalySigma
	}
	if meta.IsDefined("clamp_magnitude") {
		cfg.ClampMagnitude = raw.ClampMagnitude
	}
	if meta.IsDefined("correlation_shift") {
		cfg.CorrelationShift = raw.CorrelationShift
	}
	if meta.IsDefined("baseline_samples") {
		cfg.BaselineSamples = raw.BaselineSamples
	}
	if meta.IsDefined("baseline_duration") {
		d, err := parseDur("baseline_duration", raw.BaselineDuration)
		if err != nil {
			return session.Config{}, err
		}
		cfg.BaselineDuration = d
	}

	return cfg, nil
}

func parseDur(key, val string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func toProbeTypes(in []string) []probe.Type {
	out := make([]probe.Type, 0, len(in))
	for _, s := range in {
		v := strings.TrimSpace(s)
		if v == "" {
			continue
		}
		out = append(out, probe.Type(v))
	}
	return out
}
