package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/faults"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
)

// helper: schumann descriptor from the standard catalog.
func schumann(t *testing.T) probe.Descriptor {
	t.Helper()
	d, ok := probe.StandardCatalog().ByType(probe.TypeSchumannAM)
	if !ok {
		t.Fatal("schumann_am missing from standard catalog")
	}
	return d
}

// 1. Same seed and call sequence produce identical windows.
func TestSim_Deterministic(t *testing.T) {
	cfg := DefaultSimConfig()
	a := NewSimTransceiver(cfg)
	b := NewSimTransceiver(cfg)
	ctx := context.Background()
	d := schumann(t)

	wa, err := a.Capture(ctx, d, time.Second, 2*time.Second, 0)
	if err != nil {
		t.Fatalf("capture a: %v", err)
	}
	wb, err := b.Capture(ctx, d, time.Second, 2*time.Second, 0)
	if err != nil {
		t.Fatalf("capture b: %v", err)
	}

	if len(wa.Resp) != len(wb.Resp) {
		t.Fatalf("lengths differ: %d vs %d", len(wa.Resp), len(wb.Resp))
	}
	for i := range wa.Resp {
		if wa.Resp[i] != wb.Resp[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, wa.Resp[i], wb.Resp[i])
		}
	}
}

// 2. Adaptive mode injects probe energy: the echoed response has visibly more
// power than the silent channel's.
func TestSim_AdaptiveEcho(t *testing.T) {
	quietCfg := DefaultSimConfig()
	adaptiveCfg := DefaultSimConfig()
	adaptiveCfg.Adaptive = true

	quiet := NewSimTransceiver(quietCfg)
	adaptive := NewSimTransceiver(adaptiveCfg)
	ctx := context.Background()
	d := schumann(t)

	wq, err := quiet.Capture(ctx, d, time.Second, 4*time.Second, 0)
	if err != nil {
		t.Fatalf("capture quiet: %v", err)
	}
	wa, err := adaptive.Capture(ctx, d, time.Second, 4*time.Second, 0)
	if err != nil {
		t.Fatalf("capture adaptive: %v", err)
	}

	if power(wa.Resp) <= power(wq.Resp) {
		t.Errorf("adaptive power %v not above quiet power %v", power(wa.Resp), power(wq.Resp))
	}
}

// 3. Silence probes never get an echo, even in adaptive mode.
func TestSim_SilenceNoEcho(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.Adaptive = true
	s := NewSimTransceiver(cfg)
	d, _ := probe.StandardCatalog().ByType(probe.TypeSilence)

	w, err := s.Capture(context.Background(), d, time.Second, time.Second, 0)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	for i, r := range w.Ref {
		if r != 0 {
			t.Fatalf("silence reference sample %d = %v, want 0", i, r)
		}
	}
}

// 4. Scripted failures: FailNext errors surface as HardwareError, one per
// call, then captures succeed again.
func TestSim_FailNext(t *testing.T) {
	s := NewSimTransceiver(DefaultSimConfig())
	s.FailNext(errors.New("antenna unplugged"))
	ctx := context.Background()
	d := schumann(t)

	_, err := s.Capture(ctx, d, time.Second, time.Second, 0)
	var hw *faults.HardwareError
	if !errors.As(err, &hw) {
		t.Fatalf("error = %v, want HardwareError", err)
	}

	if _, err := s.Capture(ctx, d, time.Second, time.Second, 0); err != nil {
		t.Fatalf("capture after scripted failure: %v", err)
	}
}

// 5. Cancelled context fails fast with a HardwareError.
func TestSim_CancelledContext(t *testing.T) {
	s := NewSimTransceiver(DefaultSimConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Capture(ctx, schumann(t), time.Second, time.Second, 0)
	var hw *faults.HardwareError
	if !errors.As(err, &hw) {
		t.Fatalf("capture error = %v, want HardwareError", err)
	}
	_, err = s.CaptureBaseline(ctx, time.Second)
	if !errors.As(err, &hw) {
		t.Fatalf("baseline error = %v, want HardwareError", err)
	}
}

// mean power of an envelope.
func power(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return sum / float64(len(samples))
}
