package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/evidence"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/policy"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sprt"
)

// #region collaborators

// MetricsExtractor is the response-analysis collaborator contract.
type MetricsExtractor interface {
	Fit(windows []observe.Window) (observe.Baseline, error)
	Extract(w observe.Window, d probe.Descriptor, base observe.Baseline) (observe.Metrics, error)
}

// EvidenceMapper maps one (probe, metrics) pair to a finite LLR contribution.
type EvidenceMapper interface {
	LLR(d probe.Descriptor, m observe.Metrics) (float64, error)
}

// MapperFactory builds the evidence mapper once the baseline is frozen.
type MapperFactory func(base observe.Baseline, cfg Config) (EvidenceMapper, error)

// defaultMapperFactory wires the Gaussian evidence mapper.
func defaultMapperFactory(base observe.Baseline, cfg Config) (EvidenceMapper, error) {
	return evidence.NewMapper(base, evidence.MapperConfig{
		ClampMagnitude:   cfg.ClampMagnitude,
		AnomalySigma:     cfg.AnomalySigma,
		CorrelationShift: cfg.CorrelationShift,
	})
}

// #endregion collaborators

// #region runner

// Runner drives the select -> acquire -> evaluate -> update cycle under the
// configured budgets. Single-threaded by construction: the SPRT is defined
// over an ordered evidence stream, and probe N+1 is never issued before probe
// N's full observation window has completed and been logged.
type Runner struct {
	cfg       Config
	catalog   *probe.Catalog
	selector  policy.Selector
	trx       observe.Transceiver
	ext       MetricsExtractor
	newMapper MapperFactory
	log       Log
	logger    zerolog.Logger
}

// NewRunner wires the production collaborators (observe.Extractor,
// evidence.Mapper) around the given transceiver and log.
func NewRunner(cfg Config, cat *probe.Catalog, trx observe.Transceiver, log Log, logger zerolog.Logger) (*Runner, error) {
	ext, err := observe.NewExtractor(cfg.AnomalySigma)
	if err != nil {
		return nil, err
	}
	return NewRunnerWithCollaborators(cfg, cat, trx, ext, defaultMapperFactory, log, logger)
}

// NewRunnerWithCollaborators injects every collaborator explicitly. Any
// component satisfying the contracts can be substituted, including fully
// synthetic ones for deterministic tests.
func NewRunnerWithCollaborators(
	cfg Config,
	cat *probe.Catalog,
	trx observe.Transceiver,
	ext MetricsExtractor,
	newMapper MapperFactory,
	log Log,
	logger zerolog.Logger,
) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	selector, err := policy.New(cfg.SelectionMode, cat, cfg.FixedSequence)
	if err != nil {
		return nil, err
	}
	if newMapper == nil {
		newMapper = defaultMapperFactory
	}
	return &Runner{
		cfg:       cfg,
		catalog:   cat,
		selector:  selector,
		trx:       trx,
		ext:       ext,
		newMapper: newMapper,
		log:       log,
		logger:    logger,
	}, nil
}

// #endregion runner

// #region run

// Run executes one full session and always returns a Summary, even on abort.
// The returned error is non-nil only for Aborted sessions and initialization
// failures; the partial log up to the last appended record remains valid.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	id := uuid.New().String()
	logger := r.logger.With().Str("session", id).Logger()

	logger.Info().
		Float64("alpha", r.cfg.Alpha).
		Float64("beta", r.cfg.Beta).
		Int("max_iterations", r.cfg.MaxIterations).
		Str("mode", string(r.cfg.SelectionMode)).
		Msg("session initializing")

	if err := r.log.Begin(id, started.UTC(), r.cfg); err != nil {
		return r.finishAndLog(logger, id, started, PhaseAborted, ReasonLogFailure, err, sprt.State{}), err
	}

	engine, err := sprt.NewEngine(r.cfg.Alpha, r.cfg.Beta)
	if err != nil {
		// Config was validated; engine construction cannot fail here.
		return r.finishAndLog(logger, id, started, PhaseAborted, ReasonNumericalInstability, err, sprt.State{}), err
	}

	base, err := r.captureBaseline(ctx, logger)
	if err != nil {
		// Initialization failure is fatal: no baseline, no likelihood model.
		return r.finishAndLog(logger, id, started, PhaseAborted, classifyReason(err), err, engine.State()), err
	}
	if err := r.log.RecordBaseline(id, base); err != nil {
		return r.finishAndLog(logger, id, started, PhaseAborted, ReasonLogFailure, err, engine.State()), err
	}

	mapper, err := r.newMapper(base, r.cfg)
	if err != nil {
		return r.finishAndLog(logger, id, started, PhaseAborted, classifyReason(err), err, engine.State()), err
	}

	logger.Info().
		Float64("power_mean", base.PowerMean).
		Float64("power_std", base.PowerStd).
		Int("windows", base.Windows).
		Msg("baseline frozen, session running")

	var history []probe.Type
	for {
		// Cooperative cancellation: checked only at iteration boundaries so
		// an in-flight iteration always reaches the log before stopping.
		if cerr := ctx.Err(); cerr != nil {
			return r.finishAndLog(logger, id, started, PhaseAborted, ReasonCancelled, cerr, engine.State()), cerr
		}

		d, err := r.selector.Next(engine.State(), history)
		if err != nil {
			return r.finishAndLog(logger, id, started, PhaseAborted, classifyReason(err), err, engine.State()), err
		}

		metrics, err := r.acquire(ctx, logger, d, base)
		if err != nil {
			return r.finishAndLog(logger, id, started, PhaseAborted, classifyReason(err), err, engine.State()), err
		}

		llr, err := mapper.LLR(d, metrics)
		if err != nil {
			return r.finishAndLog(logger, id, started, PhaseAborted, ReasonNumericalInstability, err, engine.State()), err
		}

		// The engine refuses evidence after a decision, so the decision state
		// is checked before every update, not after.
		if engine.Decided() {
			err := faults.ErrAlreadyDecided
			return r.finishAndLog(logger, id, started, PhaseAborted, ReasonNumericalInstability, err, engine.State()), err
		}
		st, err := engine.Update(llr)
		if err != nil {
			return r.finishAndLog(logger, id, started, PhaseAborted, ReasonNumericalInstability, err, engine.State()), err
		}

		rec := IterationRecord{
			Index:     st.Iterations,
			Timestamp: time.Now().UTC(),
			Probe:     d,
			Metrics:   metrics,
			LLR:       llr,
			State:     st,
		}
		// Durability boundary: the record must be on the log before the loop
		// may act again.
		if err := r.log.Append(id, rec); err != nil {
			return r.finishAndLog(logger, id, started, PhaseAborted, ReasonLogFailure, err, st), err
		}
		history = append(history, d.Type)

		logger.Info().
			Int("iteration", st.Iterations).
			Str("probe", string(d.Type)).
			Float64("llr", llr).
			Float64("log_odds", st.LogOdds).
			Str("decision", string(st.Decision)).
			Msg("iteration logged")

		if st.Decision != sprt.Undecided {
			return r.finishAndLog(logger, id, started, PhaseDecided, ReasonDecision, nil, st), nil
		}
		if st.Iterations >= r.cfg.MaxIterations {
			return r.finishAndLog(logger, id, started, PhaseBudgetExhausted, ReasonIterationBudget, nil, st), nil
		}
		if r.cfg.MaxDuration > 0 && time.Since(started) >= r.cfg.MaxDuration {
			return r.finishAndLog(logger, id, started, PhaseBudgetExhausted, ReasonTimeBudget, nil, st), nil
		}
	}
}

// #endregion run

// #region baseline

// captureBaseline collects the configured number of silent windows and fits
// the baseline model. Called once, during initialization.
func (r *Runner) captureBaseline(ctx context.Context, logger zerolog.Logger) (observe.Baseline, error) {
	windows := make([]observe.Window, 0, r.cfg.BaselineSamples)
	dur := r.cfg.baselineWindow()

	for i := 0; i < r.cfg.BaselineSamples; i++ {
		cctx, cancel := context.WithTimeout(ctx, dur+r.cfg.CaptureGrace)
		w, err := r.trx.CaptureBaseline(cctx, dur)
		cancel()
		if err != nil {
			return observe.Baseline{}, asHardware("baseline", err)
		}
		windows = append(windows, w)
		logger.Debug().Int("window", i+1).Int("of", r.cfg.BaselineSamples).Msg("baseline window captured")
	}

	return r.ext.Fit(windows)
}

// #endregion baseline

// #region acquire

// acquire runs one capture+extract cycle for the chosen probe. Hardware and
// analysis faults get exactly one retry with the same probe before the error
// escalates to a session abort.
func (r *Runner) acquire(ctx context.Context, logger zerolog.Logger, d probe.Descriptor, base observe.Baseline) (observe.Metrics, error) {
	m, err := r.acquireOnce(ctx, d, base)
	if err == nil {
		return m, nil
	}
	if !retryable(err) {
		return observe.Metrics{}, err
	}

	logger.Warn().Str("probe", string(d.Type)).Err(err).Msg("acquisition failed, retrying once")
	return r.acquireOnce(ctx, d, base)
}

func (r *Runner) acquireOnce(ctx context.Context, d probe.Descriptor, base observe.Baseline) (observe.Metrics, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.captureBudget())
	w, err := r.trx.Capture(cctx, d, r.cfg.ProbeDuration, r.cfg.ListenDuration, r.cfg.InterProbeDelay)
	cancel()
	if err != nil {
		return observe.Metrics{}, asHardware("capture", err)
	}
	return r.ext.Extract(w, d, base)
}

// retryable reports whether the single-retry policy applies.
func retryable(err error) bool {
	var hw *faults.HardwareError
	var an *faults.AnalysisError
	return errors.As(err, &hw) || errors.As(err, &an)
}

// asHardware guarantees transceiver failures surface as HardwareError even
// from collaborators that return bare errors.
func asHardware(op string, err error) error {
	var hw *faults.HardwareError
	if errors.As(err, &hw) {
		return err
	}
	return &faults.HardwareError{Op: op, Err: err}
}

// #endregion acquire

// #region finish

// finish assembles the terminal Summary and writes it to the log.
func (r *Runner) finish(logger zerolog.Logger, id string, started time.Time, phase Phase, reason TerminationReason, cause error, st sprt.State) Summary {
	sum := Summary{
		SessionID:  id,
		Phase:      phase,
		Decision:   st.Decision,
		Iterations: st.Iterations,
		Elapsed:    time.Since(started),
		Reason:     reason,
	}
	if sum.Decision == "" {
		sum.Decision = sprt.Undecided
	}
	if cause != nil {
		sum.Detail = cause.Error()
	}
	if err := r.log.Complete(id, sum); err != nil {
		logger.Error().Err(err).Msg("failed to persist session summary")
	}
	return sum
}

func (r *Runner) finishAndLog(logger zerolog.Logger, id string, started time.Time, phase Phase, reason TerminationReason, cause error, st sprt.State) Summary {
	sum := r.finish(logger, id, started, phase, reason, cause, st)
	ev := logger.Info()
	if cause != nil {
		ev = logger.Error().Err(cause)
	}
	ev.Str("phase", string(phase)).
		Str("decision", string(sum.Decision)).
		Int("iterations", sum.Iterations).
		Str("reason", string(reason)).
		Dur("elapsed", sum.Elapsed).
		Msg("session complete")
	return sum
}

// classifyReason maps a fault to its termination reason.
func classifyReason(err error) TerminationReason {
	var hw *faults.HardwareError
	if errors.As(err, &hw) {
		return ReasonHardwareFailure
	}
	var an *faults.AnalysisError
	if errors.As(err, &an) {
		return ReasonAnalysisFailure
	}
	var ni *faults.NumericalInstabilityError
	if errors.As(err, &ni) {
		return ReasonNumericalInstability
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ReasonCancelled
	}
	return ReasonAnalysisFailure
}

// #endregion finish
