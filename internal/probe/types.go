package probe

// #region probe-type

// Type identifies a probe waveform family.
type Type string

const (
	TypeHydrogenPulse     Type = "hydrogen_pulse"
	TypeSchumannAM        Type = "schumann_am"
	TypeFrequencySweep    Type = "frequency_sweep"
	TypePrimeSequence     Type = "prime_sequence"
	TypeFibonacciSequence Type = "fibonacci_sequence"
	TypeGoldenRatio       Type = "golden_ratio"
	TypeSilence           Type = "silence"
)

// #endregion probe-type

// #region params

// Params holds the waveform parameters of a probe. The transceiver interprets
// them; the core only carries them through the log for reproducibility.
type Params struct {
	CarrierOffsetHz float64   `json:"carrier_offset_hz"` // baseband offset from the session carrier
	ModulationHz    float64   `json:"modulation_hz"`     // envelope modulation rate, 0 = unmodulated
	ModulationDepth float64   `json:"modulation_depth"`  // 0..1
	Gating          []float64 `json:"gating,omitempty"`  // pulse interval sequence in seconds, nil = continuous
}

// #endregion params

// #region descriptor

// Descriptor is an immutable probe configuration with its expected
// information gain. Owned by the Catalog that constructed it.
type Descriptor struct {
	Type        Type    `json:"type"`
	Description string  `json:"description"`
	Params      Params  `json:"params"`
	KLScore     float64 `json:"kl_score"` // expected KL divergence between H1 and H0 responses, >= 0
}

// #endregion descriptor
