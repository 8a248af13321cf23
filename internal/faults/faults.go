package faults

import (
	"errors"
	"fmt"
)

// #region configuration

// ConfigurationError reports an invalid session or component configuration.
// Raised before any iteration runs; always fatal.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Detail)
}

// #endregion configuration

// #region hardware

// HardwareError wraps a transmission or capture failure from the transceiver.
// The orchestrator permits one retry with the same probe before aborting.
type HardwareError struct {
	Op  string
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("hardware %s: %v", e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// #endregion hardware

// #region analysis

// AnalysisError reports a malformed observation (wrong sample count, empty
// capture). Same retry-then-abort policy as HardwareError.
type AnalysisError struct {
	Reason string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis: %s", e.Reason)
}

// #endregion analysis

// #region numerical

// NumericalInstabilityError reports an evidence value that is not finite even
// after clamping. Fatal: the likelihood model itself is broken, not a
// transient fault.
type NumericalInstabilityError struct {
	Value float64
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("numerical instability: evidence value %v", e.Value)
}

// #endregion numerical

// #region already-decided

// ErrAlreadyDecided is returned when an SPRT update is attempted after a
// terminal decision. Always a logic bug in the caller, never retried.
var ErrAlreadyDecided = errors.New("sequential test already decided")

// #endregion already-decided
