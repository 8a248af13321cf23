package sessionlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/session"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sprt"
)

// helper: store backed by a temp file.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// helper: iteration record for the given index.
func record(i int, llr, odds float64, dec sprt.Decision) session.IterationRecord {
	d, _ := probe.StandardCatalog().ByType(probe.TypeSchumannAM)
	return session.IterationRecord{
		Index:     i,
		Timestamp: time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		Probe:     d,
		Metrics:   observe.Metrics{PowerMean: 1.5, AnomalyScore: 2.0, Correlation: 0.4},
		LLR:       llr,
		State:     sprt.State{LogOdds: odds, Iterations: i, Decision: dec},
	}
}

// 1. Full round trip: begin, baseline, appends, complete, load back.
func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	cfg := session.DefaultConfig()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := observe.Baseline{PowerMean: 1, PowerStd: 0.1, CorrMean: 0.05, CorrSpread: 0.2, Windows: 5}

	if err := s.Begin("s1", started, cfg); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.RecordBaseline("s1", base); err != nil {
		t.Fatalf("RecordBaseline: %v", err)
	}
	if err := s.Append("s1", record(1, 1.2, 1.2, sprt.Undecided)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append("s1", record(2, 3.5, 4.7, sprt.DecideH1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	sum := session.Summary{
		SessionID:  "s1",
		Phase:      session.PhaseDecided,
		Decision:   sprt.DecideH1,
		Iterations: 2,
		Elapsed:    90 * time.Second,
		Reason:     session.ReasonDecision,
	}
	if err := s.Complete("s1", sum); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	data, err := s.LoadSession("s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if data.Config.Alpha != cfg.Alpha || data.Config.MaxIterations != cfg.MaxIterations {
		t.Errorf("config round trip lost fields: %+v", data.Config)
	}
	if !data.HasBaseline || data.Baseline != base {
		t.Errorf("baseline round trip: %+v", data.Baseline)
	}
	if len(data.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(data.Records))
	}
	if data.Records[0].Index != 1 || data.Records[1].Index != 2 {
		t.Errorf("record order: %d, %d", data.Records[0].Index, data.Records[1].Index)
	}
	if math.Abs(data.Records[1].LLR-3.5) > 1e-12 {
		t.Errorf("llr round trip = %v", data.Records[1].LLR)
	}
	if data.Records[1].State.Decision != sprt.DecideH1 {
		t.Errorf("decision round trip = %s", data.Records[1].State.Decision)
	}
	if data.Records[1].Probe.Type != probe.TypeSchumannAM {
		t.Errorf("probe round trip = %s", data.Records[1].Probe.Type)
	}
	if !data.Completed || data.Summary.Decision != sprt.DecideH1 || data.Summary.Elapsed != 90*time.Second {
		t.Errorf("summary round trip: %+v", data.Summary)
	}
}

// 2. Duplicate iteration indexes are rejected, not overwritten.
func TestStore_DuplicateIterationRejected(t *testing.T) {
	s := newTestStore(t)
	if err := s.Begin("s1", time.Now().UTC(), session.DefaultConfig()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Append("s1", record(1, 1, 1, sprt.Undecided)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append("s1", record(1, 2, 2, sprt.Undecided)); err == nil {
		t.Fatal("duplicate iteration accepted")
	}
}

// 3. An incomplete session loads with Completed=false and no summary.
func TestStore_IncompleteSession(t *testing.T) {
	s := newTestStore(t)
	if err := s.Begin("s1", time.Now().UTC(), session.DefaultConfig()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	data, err := s.LoadSession("s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if data.Completed {
		t.Error("incomplete session reported completed")
	}
	if data.HasBaseline {
		t.Error("baseline reported before being recorded")
	}
}

// 4. Loading an unknown session errors.
func TestStore_UnknownSession(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadSession("nope"); err == nil {
		t.Fatal("unknown session loaded without error")
	}
}

// 5. ListSessions returns newest first and respects the limit.
func TestStore_ListSessions(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := s.Begin(id, base.Add(time.Duration(i)*time.Hour), session.DefaultConfig()); err != nil {
			t.Fatalf("Begin %s: %v", id, err)
		}
	}

	rows, err := s.ListSessions(2)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].SessionID != "new" || rows[1].SessionID != "mid" {
		t.Errorf("order = %s, %s", rows[0].SessionID, rows[1].SessionID)
	}
}

// 6. ExportJSONL emits one valid JSON object per iteration, in order.
func TestStore_ExportJSONL(t *testing.T) {
	s := newTestStore(t)
	if err := s.Begin("s1", time.Now().UTC(), session.DefaultConfig()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := s.Append("s1", record(i, float64(i), float64(i), sprt.Undecided)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	var buf bytes.Buffer
	if err := s.ExportJSONL(&buf, "s1"); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	line := 0
	for scanner.Scan() {
		line++
		var rec session.IterationRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d not valid JSON: %v", line, err)
		}
		if rec.Index != line {
			t.Errorf("line %d has index %d", line, rec.Index)
		}
	}
	if line != 3 {
		t.Errorf("exported %d lines, want 3", line)
	}
}
