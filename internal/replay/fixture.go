package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/session"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sprt"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a recorded
// session in portable form, plus optional expectations to assert against.
type Fixture struct {
	Description string             `json:"description"`
	SessionID   string             `json:"session_id"`
	Config      session.Config     `json:"config"`
	Baseline    observe.Baseline   `json:"baseline"`
	Iterations  []FixtureIteration `json:"iterations"`
	Expected    *FixtureExpected   `json:"expected,omitempty"`
}

// FixtureIteration is one recorded iteration. The probe is referenced by type
// and resolved against the standard catalog, so fixtures stay readable and
// never embed stale probe parameters.
type FixtureIteration struct {
	Index     int             `json:"iteration"`
	ProbeType probe.Type      `json:"probe_type"`
	Metrics   observe.Metrics `json:"metrics"`
	LLR       float64         `json:"llr"`
	LogOdds   float64         `json:"log_odds"`
	Decision  sprt.Decision   `json:"decision"`
}

// FixtureExpected captures the expected terminal state of the replay.
type FixtureExpected struct {
	Decision   sprt.Decision `json:"decision"`
	Iterations int           `json:"iterations"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToLoggedSession resolves probe types against the catalog and converts the
// fixture to the harness's input form.
func (f *Fixture) ToLoggedSession(cat *probe.Catalog) (LoggedSession, error) {
	logged := LoggedSession{
		SessionID: f.SessionID,
		Config:    f.Config,
		Baseline:  f.Baseline,
		Records:   make([]session.IterationRecord, 0, len(f.Iterations)),
	}
	for _, it := range f.Iterations {
		d, ok := cat.ByType(it.ProbeType)
		if !ok {
			return LoggedSession{}, fmt.Errorf("fixture iteration %d: probe type %s not in catalog", it.Index, it.ProbeType)
		}
		dec := it.Decision
		if dec == "" {
			dec = sprt.Undecided
		}
		logged.Records = append(logged.Records, session.IterationRecord{
			Index:   it.Index,
			Probe:   d,
			Metrics: it.Metrics,
			LLR:     it.LLR,
			State: sprt.State{
				LogOdds:    it.LogOdds,
				Iterations: it.Index,
				Decision:   dec,
			},
		})
	}
	return logged, nil
}

// #endregion fixture-loader
