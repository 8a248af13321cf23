package sprt

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
)

// #region decision

// Decision is the terminal state of the sequential test.
type Decision string

const (
	Undecided Decision = "undecided"
	DecideH0  Decision = "h0" // confirmed null: background noise
	DecideH1  Decision = "h1" // adaptive response detected
)

// #endregion decision

// #region state

// State is a snapshot of the sequential test after an update. Decision is
// write-once: the only legal transition is undecided -> {h0, h1}.
type State struct {
	LogOdds    float64  `json:"log_odds"`
	Iterations int      `json:"iterations"`
	UpperA     float64  `json:"upper_a"` // ln((1-beta)/alpha), cross upward => H1
	LowerB     float64  `json:"lower_b"` // ln(beta/(1-alpha)), cross downward => H0
	Decision   Decision `json:"decision"`
}

// #endregion state

// #region engine

// Engine is a Wald sequential probability ratio test. It accumulates
// log-likelihood ratios until the cumulative log-odds crosses one of the two
// error-controlled thresholds. Thresholds are fixed at construction and never
// change mid-session.
type Engine struct {
	state State
}

// NewEngine computes the thresholds from the target error rates.
// alpha is the Type I (false positive) rate, beta the Type II (false
// negative) rate; both must lie in (0, 1).
func NewEngine(alpha, beta float64) (*Engine, error) {
	if !(alpha > 0 && alpha < 1) {
		return nil, &faults.ConfigurationError{
			Field:  "alpha",
			Detail: fmt.Sprintf("must be in (0,1), got %v", alpha),
		}
	}
	if !(beta > 0 && beta < 1) {
		return nil, &faults.ConfigurationError{
			Field:  "beta",
			Detail: fmt.Sprintf("must be in (0,1), got %v", beta),
		}
	}

	return &Engine{state: State{
		UpperA:   math.Log((1 - beta) / alpha),
		LowerB:   math.Log(beta / (1 - alpha)),
		Decision: Undecided,
	}}, nil
}

// State returns a snapshot of the current test state.
func (e *Engine) State() State { return e.state }

// Decided reports whether a terminal decision has been reached.
func (e *Engine) Decided() bool { return e.state.Decision != Undecided }

// Update folds one evidence sample into the cumulative log-odds and applies
// the stopping rule. After a terminal decision it rejects further updates
// with faults.ErrAlreadyDecided and leaves the state unchanged; continuing to
// accumulate would invalidate the alpha/beta error bounds.
func (e *Engine) Update(llr float64) (State, error) {
	if e.state.Decision != Undecided {
		return e.state, faults.ErrAlreadyDecided
	}
	if math.IsNaN(llr) || math.IsInf(llr, 0) {
		return e.state, &faults.NumericalInstabilityError{Value: llr}
	}

	e.state.LogOdds += llr
	e.state.Iterations++

	switch {
	case e.state.LogOdds >= e.state.UpperA:
		e.state.Decision = DecideH1
	case e.state.LogOdds <= e.state.LowerB:
		e.state.Decision = DecideH0
	}
	return e.state, nil
}

// #endregion engine
