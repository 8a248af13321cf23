package sessionlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/session"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sprt"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	started_at    TEXT NOT NULL,
	config_json   TEXT NOT NULL,
	baseline_json TEXT,
	phase         TEXT,
	decision      TEXT,
	iterations    INTEGER,
	elapsed_ms    INTEGER,
	reason        TEXT,
	detail        TEXT,
	completed_at  TEXT
);

CREATE TABLE IF NOT EXISTS iterations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	iter          INTEGER NOT NULL,
	ts            TEXT NOT NULL,
	probe_type    TEXT NOT NULL,
	probe_json    TEXT NOT NULL,
	metrics_json  TEXT NOT NULL,
	llr           REAL NOT NULL,
	log_odds      REAL NOT NULL,
	decision      TEXT NOT NULL,
	UNIQUE (session_id, iter),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`
// #endregion schema

// #region store-struct
// Store is the durable session log in SQLite. It implements session.Log for
// live runs and exposes loaders for the replay and inspect tooling.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region begin
// Begin creates the session row with its frozen configuration.
func (s *Store) Begin(id string, startedAt time.Time, cfg session.Config) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (session_id, started_at, config_json) VALUES (?, ?, ?)`,
		id, startedAt.Format(time.RFC3339Nano), string(cfgJSON),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}
// #endregion begin

// #region baseline
// RecordBaseline stores the fitted baseline on the session row.
func (s *Store) RecordBaseline(id string, base observe.Baseline) error {
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE sessions SET baseline_json = ? WHERE session_id = ?`,
		string(baseJSON), id,
	)
	if err != nil {
		return fmt.Errorf("record baseline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record baseline: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}
// #endregion baseline

// #region append
// Append writes one iteration record. The UNIQUE(session_id, iter) constraint
// makes a duplicate index an error rather than a silent overwrite.
func (s *Store) Append(id string, rec session.IterationRecord) error {
	probeJSON, err := json.Marshal(rec.Probe)
	if err != nil {
		return fmt.Errorf("marshal probe: %w", err)
	}
	metricsJSON, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO iterations (session_id, iter, ts, probe_type, probe_json, metrics_json, llr, log_odds, decision)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Index, rec.Timestamp.Format(time.RFC3339Nano),
		string(rec.Probe.Type), string(probeJSON), string(metricsJSON),
		rec.LLR, rec.State.LogOdds, string(rec.State.Decision),
	)
	if err != nil {
		return fmt.Errorf("append iteration %d: %w", rec.Index, err)
	}
	return nil
}
// #endregion append

// #region complete
// Complete stamps the terminal summary onto the session row.
func (s *Store) Complete(id string, sum session.Summary) error {
	_, err := s.db.Exec(
		`UPDATE sessions
		 SET phase = ?, decision = ?, iterations = ?, elapsed_ms = ?, reason = ?, detail = ?, completed_at = ?
		 WHERE session_id = ?`,
		string(sum.Phase), string(sum.Decision), sum.Iterations,
		sum.Elapsed.Milliseconds(), string(sum.Reason), sum.Detail,
		time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}
// #endregion complete

// #region session-data
// SessionData is one fully loaded session: config, baseline, the ordered
// iteration records, and the summary if the session completed.
type SessionData struct {
	SessionID   string
	StartedAt   time.Time
	Config      session.Config
	Baseline    observe.Baseline
	HasBaseline bool
	Records     []session.IterationRecord
	Summary     session.Summary
	Completed   bool
}
// #endregion session-data

// #region load-session
// LoadSession reads one session and its iteration stream, ordered by index.
func (s *Store) LoadSession(id string) (SessionData, error) {
	var data SessionData
	var startedStr, cfgJSON string
	var baseJSON, phase, decision, reason, detail, completedAt sql.NullString
	var iterations, elapsedMS sql.NullInt64

	err := s.db.QueryRow(
		`SELECT session_id, started_at, config_json, baseline_json,
		        phase, decision, iterations, elapsed_ms, reason, detail, completed_at
		 FROM sessions WHERE session_id = ?`, id,
	).Scan(&data.SessionID, &startedStr, &cfgJSON, &baseJSON,
		&phase, &decision, &iterations, &elapsedMS, &reason, &detail, &completedAt)
	if err != nil {
		return SessionData{}, fmt.Errorf("load session %s: %w", id, err)
	}

	data.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	if err := json.Unmarshal([]byte(cfgJSON), &data.Config); err != nil {
		return SessionData{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if baseJSON.Valid {
		if err := json.Unmarshal([]byte(baseJSON.String), &data.Baseline); err != nil {
			return SessionData{}, fmt.Errorf("unmarshal baseline: %w", err)
		}
		data.HasBaseline = true
	}
	if completedAt.Valid {
		data.Completed = true
		data.Summary = session.Summary{
			SessionID:  data.SessionID,
			Phase:      session.Phase(phase.String),
			Decision:   sprtDecision(decision.String),
			Iterations: int(iterations.Int64),
			Elapsed:    time.Duration(elapsedMS.Int64) * time.Millisecond,
			Reason:     session.TerminationReason(reason.String),
			Detail:     detail.String,
		}
	}

	rows, err := s.db.Query(
		`SELECT iter, ts, probe_json, metrics_json, llr, log_odds, decision
		 FROM iterations WHERE session_id = ? ORDER BY iter ASC`, id,
	)
	if err != nil {
		return SessionData{}, fmt.Errorf("load iterations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec session.IterationRecord
		var tsStr, probeJSON, metricsJSON, decStr string
		if err := rows.Scan(&rec.Index, &tsStr, &probeJSON, &metricsJSON, &rec.LLR, &rec.State.LogOdds, &decStr); err != nil {
			return SessionData{}, fmt.Errorf("scan iteration: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
		if err := json.Unmarshal([]byte(probeJSON), &rec.Probe); err != nil {
			return SessionData{}, fmt.Errorf("unmarshal probe: %w", err)
		}
		if err := json.Unmarshal([]byte(metricsJSON), &rec.Metrics); err != nil {
			return SessionData{}, fmt.Errorf("unmarshal metrics: %w", err)
		}
		rec.State.Iterations = rec.Index
		rec.State.Decision = sprtDecision(decStr)
		data.Records = append(data.Records, rec)
	}
	return data, rows.Err()
}
// #endregion load-session

// #region list-sessions
// SessionRow is the compact per-session listing for the inspect tooling.
type SessionRow struct {
	SessionID  string
	StartedAt  time.Time
	Phase      string
	Decision   string
	Iterations int
	Reason     string
}

// ListSessions returns the most recent sessions, newest first.
func (s *Store) ListSessions(limit int) ([]SessionRow, error) {
	rows, err := s.db.Query(
		`SELECT session_id, started_at, phase, decision, iterations, reason
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var startedStr string
		var phase, decision, reason sql.NullString
		var iterations sql.NullInt64
		if err := rows.Scan(&r.SessionID, &startedStr, &phase, &decision, &iterations, &reason); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
		r.Phase = phase.String
		r.Decision = decision.String
		r.Iterations = int(iterations.Int64)
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}
// #endregion list-sessions

// #region export-jsonl
// ExportJSONL streams one session's iteration records as JSON lines, matching
// the live log's record shape so downstream analysis reads both the same way.
func (s *Store) ExportJSONL(w io.Writer, id string) error {
	data, err := s.LoadSession(id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, rec := range data.Records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode iteration %d: %w", rec.Index, err)
		}
	}
	return nil
}
// #endregion export-jsonl

// #region decision-helper
// sprtDecision maps a stored decision column back to the typed enum, treating
// pre-decision rows (empty string) as undecided.
func sprtDecision(s string) sprt.Decision {
	if s == "" {
		return sprt.Undecided
	}
	return sprt.Decision(s)
}
// #endregion decision-helper
