package replay

import (
	"math"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/evidence"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/session"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sprt"
)

// #region types

// LoggedSession is the minimal slice of a recorded session the harness needs:
// the frozen config, the baseline, and the ordered iteration records.
type LoggedSession struct {
	SessionID string
	Config    session.Config
	Baseline  observe.Baseline
	Records   []session.IterationRecord
}

// Result compares one logged iteration against its recomputation. The
// recorded metrics are taken as ground truth; everything downstream of them
// (LLR, cumulative log-odds, decision) is recomputed from scratch.
type Result struct {
	Index            int
	Probe            string
	LoggedLLR        float64
	ReplayedLLR      float64
	LoggedOdds       float64
	ReplayedOdds     float64
	LoggedDecision   sprt.Decision
	ReplayedDecision sprt.Decision
	Match            bool
}

// RunSummary aggregates a replay run.
type RunSummary struct {
	SessionID     string
	Iterations    int
	Mismatches    int
	FinalDecision sprt.Decision
	FinalOdds     float64
}

// Matched reports whether every iteration reproduced exactly.
func (s RunSummary) Matched() bool { return s.Mismatches == 0 }

// #endregion types

// #region tolerance

// llrTolerance absorbs float formatting round-trips through the log. Any
// divergence beyond it means the likelihood model or the engine changed since
// the session was recorded.
const llrTolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= llrTolerance
}

// #endregion tolerance

// #region replay

// Replay re-runs the evidence mapper and the sequential test over a logged
// session's metrics and compares each step against what the live run logged.
// Operates entirely in-memory; the stored session is never modified.
func Replay(logged LoggedSession) ([]Result, RunSummary, error) {
	mapper, err := evidence.NewMapper(logged.Baseline, evidence.MapperConfig{
		ClampMagnitude:   logged.Config.ClampMagnitude,
		AnomalySigma:     logged.Config.AnomalySigma,
		CorrelationShift: logged.Config.CorrelationShift,
	})
	if err != nil {
		return nil, RunSummary{}, err
	}
	engine, err := sprt.NewEngine(logged.Config.Alpha, logged.Config.Beta)
	if err != nil {
		return nil, RunSummary{}, err
	}

	results := make([]Result, 0, len(logged.Records))
	sum := RunSummary{SessionID: logged.SessionID}

	for _, rec := range logged.Records {
		llr, err := mapper.LLR(rec.Probe, rec.Metrics)
		if err != nil {
			return results, sum, err
		}
		st, err := engine.Update(llr)
		if err != nil {
			return results, sum, err
		}

		r := Result{
			Index:            rec.Index,
			Probe:            string(rec.Probe.Type),
			LoggedLLR:        rec.LLR,
			ReplayedLLR:      llr,
			LoggedOdds:       rec.State.LogOdds,
			ReplayedOdds:     st.LogOdds,
			LoggedDecision:   rec.State.Decision,
			ReplayedDecision: st.Decision,
		}
		r.Match = approxEqual(r.LoggedLLR, r.ReplayedLLR) &&
			approxEqual(r.LoggedOdds, r.ReplayedOdds) &&
			r.LoggedDecision == r.ReplayedDecision
		if !r.Match {
			sum.Mismatches++
		}
		results = append(results, r)

		sum.Iterations++
		sum.FinalDecision = st.Decision
		sum.FinalOdds = st.LogOdds
		if st.Decision != sprt.Undecided {
			break
		}
	}

	// A log with records past its own decision point is itself a mismatch.
	if sum.Iterations < len(logged.Records) {
		sum.Mismatches += len(logged.Records) - sum.Iterations
	}

	return results, sum, nil
}

// #endregion replay
