package observe

import (
	"context"
	"time"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
)

// #region window

// Window is one raw observation: the transmitted reference envelope and the
// captured response envelope. Baseline windows carry no reference.
type Window struct {
	Ref        []float64 // transmitted probe envelope, nil for baseline captures
	Resp       []float64 // captured response envelope
	SampleRate int       // envelope samples per second
}

// #endregion window

// #region metrics

// Metrics is the fixed-shape scalar record extracted from one observation
// window. Immutable after creation; owned by the iteration record.
type Metrics struct {
	PowerMean    float64 `json:"power_mean"`
	PowerStd     float64 `json:"power_std"`
	SNRdB        float64 `json:"snr_db"`
	Correlation  float64 `json:"correlation"`   // probe/response Pearson correlation, [-1, 1]
	AnomalyScore float64 `json:"anomaly_score"` // sigma above the baseline power model
	Anomaly      bool    `json:"is_anomaly"`    // score above the configured sigma threshold
}

// #endregion metrics

// #region baseline

// Baseline is the frozen no-transmission reference model captured once per
// session. It anchors the H0 likelihood for the rest of the session.
type Baseline struct {
	PowerMean  float64 `json:"power_mean"`
	PowerStd   float64 `json:"power_std"`
	CorrMean   float64 `json:"corr_mean"`   // correlation between silent windows
	CorrSpread float64 `json:"corr_spread"` // spread of that correlation
	Windows    int     `json:"windows"`
}

// #endregion baseline

// #region transceiver

// Transceiver is the hardware collaborator contract. Capture transmits the
// probe, waits out the settling delay, and returns the listen window.
// Implementations must honor ctx and return a *faults.HardwareError on device
// absence, timeout, or I/O fault. The core never assumes anything about the
// physical delivery mechanism beyond this contract.
type Transceiver interface {
	Capture(ctx context.Context, d probe.Descriptor, probeDur, listenDur, settle time.Duration) (Window, error)
	CaptureBaseline(ctx context.Context, dur time.Duration) (Window, error)
}

// #endregion transceiver
