package policy

import (
	"fmt"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sprt"
)

// #region mode

// Mode selects the probe selection strategy.
type Mode string

const (
	ModeKLOptimal     Mode = "kl_optimal"
	ModeRoundRobin    Mode = "round_robin"
	ModeFixedSequence Mode = "fixed_sequence"
)

// #endregion mode

// #region selector

// Selector returns exactly one probe for the next iteration. It sees only the
// accumulated test state and the probe-usage history, never raw observation
// data: "what to try next" stays separate from "how strong is the evidence".
type Selector interface {
	Next(state sprt.State, history []probe.Type) (probe.Descriptor, error)
}

// New builds a selector for the given mode. sequence is only consulted in
// fixed-sequence mode, where every entry must exist in the catalog.
func New(mode Mode, cat *probe.Catalog, sequence []probe.Type) (Selector, error) {
	switch mode {
	case ModeKLOptimal:
		return &klOptimal{cat: cat}, nil
	case ModeRoundRobin:
		return &roundRobin{cat: cat}, nil
	case ModeFixedSequence:
		if len(sequence) == 0 {
			return nil, &faults.ConfigurationError{Field: "fixed_sequence", Detail: "empty sequence"}
		}
		for _, t := range sequence {
			if _, ok := cat.ByType(t); !ok {
				return nil, &faults.ConfigurationError{
					Field:  "fixed_sequence",
					Detail: fmt.Sprintf("probe type %s not in catalog", t),
				}
			}
		}
		seq := make([]probe.Type, len(sequence))
		copy(seq, sequence)
		return &fixedSequence{cat: cat, seq: seq}, nil
	default:
		return nil, &faults.ConfigurationError{
			Field:  "selection_mode",
			Detail: fmt.Sprintf("unknown mode %q", mode),
		}
	}
}

// #endregion selector

// #region kl-optimal

// klOptimal picks the highest-KL-score probe not on cool-down. The cool-down
// rule forbids repeating the previous iteration's probe type so adaptive
// evidence is not confounded with a single fixed stimulus. Ties break by
// catalog insertion order, keeping selection fully deterministic.
type klOptimal struct {
	cat *probe.Catalog
}

func (s *klOptimal) Next(_ sprt.State, history []probe.Type) (probe.Descriptor, error) {
	var last probe.Type
	if len(history) > 0 {
		last = history[len(history)-1]
	}

	if d, ok := argmaxKL(s.cat, last); ok {
		return d, nil
	}
	// Cool-down is a soft preference: with a one-probe catalog the only
	// choice is to repeat.
	d, _ := argmaxKL(s.cat, "")
	return d, nil
}

// argmaxKL returns the first probe with the strictly highest KL score whose
// type differs from excluded.
func argmaxKL(cat *probe.Catalog, excluded probe.Type) (probe.Descriptor, bool) {
	var best probe.Descriptor
	found := false
	for _, d := range cat.All() {
		if d.Type == excluded {
			continue
		}
		if !found || d.KLScore > best.KLScore {
			best = d
			found = true
		}
	}
	return best, found
}

// #endregion kl-optimal

// #region round-robin

// roundRobin cycles the catalog in declared order, ignoring KL scores.
// Control/baseline mode.
type roundRobin struct {
	cat *probe.Catalog
}

func (s *roundRobin) Next(_ sprt.State, history []probe.Type) (probe.Descriptor, error) {
	all := s.cat.All()
	return all[len(history)%len(all)], nil
}

// #endregion round-robin

// #region fixed-sequence

// fixedSequence cycles a configured sequence of probe types.
type fixedSequence struct {
	cat *probe.Catalog
	seq []probe.Type
}

func (s *fixedSequence) Next(_ sprt.State, history []probe.Type) (probe.Descriptor, error) {
	t := s.seq[len(history)%len(s.seq)]
	d, ok := s.cat.ByType(t)
	if !ok {
		// Sequence was validated at construction; the catalog is immutable.
		return probe.Descriptor{}, &faults.ConfigurationError{
			Field:  "fixed_sequence",
			Detail: fmt.Sprintf("probe type %s not in catalog", t),
		}
	}
	return d, nil
}

// #endregion fixed-sequence
