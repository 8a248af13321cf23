package session

import (
	"time"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sprt"
)

// #region phase

// Phase is the orchestrator state machine position.
type Phase string

const (
	PhaseInitializing    Phase = "initializing"
	PhaseRunning         Phase = "running"
	PhaseDecided         Phase = "decided"
	PhaseBudgetExhausted Phase = "budget_exhausted"
	PhaseAborted         Phase = "aborted"
)

// #endregion phase

// #region termination-reason

// TerminationReason records why a session ended. Budget exhaustion is kept
// distinct from a confirmed H0: only the latter carries the beta guarantee.
type TerminationReason string

const (
	ReasonDecision             TerminationReason = "decision"
	ReasonIterationBudget      TerminationReason = "iteration_budget"
	ReasonTimeBudget           TerminationReason = "time_budget"
	ReasonHardwareFailure      TerminationReason = "hardware_failure"
	ReasonAnalysisFailure      TerminationReason = "analysis_failure"
	ReasonNumericalInstability TerminationReason = "numerical_instability"
	ReasonLogFailure           TerminationReason = "log_failure"
	ReasonCancelled            TerminationReason = "cancelled"
)

// #endregion termination-reason

// #region iteration-record

// IterationRecord is the append-only unit of the session log: everything
// needed to replay one iteration's evidence and SPRT update offline.
// Never mutated after creation.
type IterationRecord struct {
	Index     int              `json:"iteration"`
	Timestamp time.Time        `json:"timestamp"`
	Probe     probe.Descriptor `json:"probe"`
	Metrics   observe.Metrics  `json:"metrics"`
	LLR       float64          `json:"llr"`
	State     sprt.State       `json:"sprt"`
}

// #endregion iteration-record

// #region summary

// Summary is the terminal record of a session, produced exactly once. A
// caller can always distinguish "no evidence collected" from "ran but could
// not decide" from "decided".
type Summary struct {
	SessionID  string            `json:"session_id"`
	Phase      Phase             `json:"phase"`
	Decision   sprt.Decision     `json:"decision"`
	Iterations int               `json:"iterations"`
	Elapsed    time.Duration     `json:"elapsed"`
	Reason     TerminationReason `json:"reason"`
	Detail     string            `json:"detail,omitempty"` // abort cause, empty otherwise
}

// #endregion summary

// #region log

// Log is the durable session log. Append must complete before the loop
// proceeds: it is the durability boundary of the iteration cycle.
type Log interface {
	Begin(id string, startedAt time.Time, cfg Config) error
	RecordBaseline(id string, base observe.Baseline) error
	Append(id string, rec IterationRecord) error
	Complete(id string, sum Summary) error
}

// #endregion log

// #region memory-log

// MemoryLog is an in-process Log for tests and ephemeral runs. Each instance
// is independent state; nothing in the package is ambient or global, so
// concurrent sessions in tests cannot interfere.
type MemoryLog struct {
	ID          string
	StartedAt   time.Time
	Config      Config
	Baseline    observe.Baseline
	HasBaseline bool
	Records     []IterationRecord
	Summary     Summary
	Completed   bool
}

func (m *MemoryLog) Begin(id string, startedAt time.Time, cfg Config) error {
	m.ID = id
	m.StartedAt = startedAt
	m.Config = cfg
	return nil
}

func (m *MemoryLog) RecordBaseline(id string, base observe.Baseline) error {
	m.Baseline = base
	m.HasBaseline = true
	return nil
}

func (m *MemoryLog) Append(id string, rec IterationRecord) error {
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MemoryLog) Complete(id string, sum Summary) error {
	m.Summary = sum
	m.Completed = true
	return nil
}

// #endregion memory-log
