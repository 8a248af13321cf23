package probe

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
)

// #region catalog

// Catalog is a fixed, validated set of probe descriptors. Lookup only; all
// selection intelligence lives in the policy package. Insertion order is
// preserved and is the tie-break ordering for deterministic selection.
type Catalog struct {
	probes []Descriptor
	byType map[Type]int
}

// NewCatalog validates descriptors and builds an immutable catalog.
// Rejects empty type tags, negative or non-finite KL scores, and duplicate
// type tags.
func NewCatalog(probes []Descriptor) (*Catalog, error) {
	if len(probes) == 0 {
		return nil, &faults.ConfigurationError{Field: "catalog", Detail: "no probes"}
	}

	byType := make(map[Type]int, len(probes))
	for i, p := range probes {
		if p.Type == "" {
			return nil, &faults.ConfigurationError{
				Field:  "catalog",
				Detail: fmt.Sprintf("probe %d has empty type tag", i),
			}
		}
		if p.KLScore < 0 || math.IsNaN(p.KLScore) || math.IsInf(p.KLScore, 0) {
			return nil, &faults.ConfigurationError{
				Field:  "catalog",
				Detail: fmt.Sprintf("probe %s has invalid kl score %v", p.Type, p.KLScore),
			}
		}
		if _, dup := byType[p.Type]; dup {
			return nil, &faults.ConfigurationError{
				Field:  "catalog",
				Detail: fmt.Sprintf("duplicate probe type %s", p.Type),
			}
		}
		byType[p.Type] = i
	}

	cp := make([]Descriptor, len(probes))
	copy(cp, probes)
	return &Catalog{probes: cp, byType: byType}, nil
}

// All returns the descriptors in insertion order.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.probes))
	copy(out, c.probes)
	return out
}

// ByType looks up a descriptor by its type tag.
func (c *Catalog) ByType(t Type) (Descriptor, bool) {
	i, ok := c.byType[t]
	if !ok {
		return Descriptor{}, false
	}
	return c.probes[i], true
}

// Len returns the number of probes in the catalog.
func (c *Catalog) Len() int { return len(c.probes) }

// #endregion catalog

// #region standard-catalog

// StandardCatalog returns the built-in probe library with its KL scores.
// Scores rank expected H1/H0 discrimination; the silence probe is the
// control and scores near zero on purpose.
func StandardCatalog() *Catalog {
	cat, err := NewCatalog([]Descriptor{
		{
			Type:        TypeHydrogenPulse,
			Description: "pulsed carrier on the hydrogen line",
			Params:      Params{Gating: []float64{2, 3, 5, 7}},
			KLScore:     2.5,
		},
		{
			Type:        TypeSchumannAM,
			Description: "AM modulated by the Schumann fundamental (7.83 Hz)",
			Params:      Params{ModulationHz: 7.83, ModulationDepth: 1.0},
			KLScore:     3.0,
		},
		{
			Type:        TypeFrequencySweep,
			Description: "linear baseband sweep 1-10 kHz",
			Params:      Params{CarrierOffsetHz: 1000, ModulationHz: 10000},
			KLScore:     2.0,
		},
		{
			Type:        TypePrimeSequence,
			Description: "prime-interval pulse train",
			Params:      Params{Gating: []float64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}},
			KLScore:     2.8,
		},
		{
			Type:        TypeFibonacciSequence,
			Description: "fibonacci-interval pulse train",
			Params:      Params{Gating: []float64{1, 1, 2, 3, 5, 8, 13, 21, 34, 55}},
			KLScore:     2.6,
		},
		{
			Type:        TypeGoldenRatio,
			Description: "golden-ratio modulated carrier",
			Params:      Params{ModulationHz: 1.618, ModulationDepth: 0.8},
			KLScore:     2.4,
		},
		{
			Type:        TypeSilence,
			Description: "silent probe (control)",
			Params:      Params{},
			KLScore:     0.1,
		},
	})
	if err != nil {
		// The standard catalog is compile-time data; a validation failure
		// here is a programming error.
		panic(err)
	}
	return cat
}

// #endregion standard-catalog
