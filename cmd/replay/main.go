package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/replay"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sessionlog"
)

// #region main
func main() {
	var (
		dbPath      = flag.String("db", envOr("DISCOVERY_DB", "discovery.db"), "session log database path")
		sessionID   = flag.String("session", "", "session ID to replay from the database")
		fixturePath = flag.String("fixture", "", "JSON fixture to replay instead of a database session")
	)
	flag.Parse()

	if (*sessionID == "") == (*fixturePath == "") {
		fmt.Fprintln(os.Stderr, "usage: replay --session <id> [--db <path>] | replay --fixture <file>")
		os.Exit(2)
	}

	logged, expected, err := load(*dbPath, *sessionID, *fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}

	results, sum, err := replay.Replay(logged)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}

	printTable(results)
	fmt.Printf("\nsession %s: %d iterations, final decision %s (log-odds %.4f)\n",
		sum.SessionID, sum.Iterations, sum.FinalDecision, sum.FinalOdds)

	failed := false
	if !sum.Matched() {
		fmt.Printf("MISMATCH: %d iteration(s) diverged from the recorded log\n", sum.Mismatches)
		failed = true
	}
	if expected != nil {
		if sum.FinalDecision != expected.Decision || sum.Iterations != expected.Iterations {
			fmt.Printf("MISMATCH: expected decision %s after %d iterations, got %s after %d\n",
				expected.Decision, expected.Iterations, sum.FinalDecision, sum.Iterations)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
	fmt.Println("replay matched the recorded session")
}

// #endregion main

// #region load
// load resolves the replay input from either the database or a fixture file.
func load(dbPath, sessionID, fixturePath string) (replay.LoggedSession, *replay.FixtureExpected, error) {
	if fixturePath != "" {
		f, err := replay.LoadFixture(fixturePath)
		if err != nil {
			return replay.LoggedSession{}, nil, err
		}
		logged, err := f.ToLoggedSession(probe.StandardCatalog())
		if err != nil {
			return replay.LoggedSession{}, nil, err
		}
		return logged, f.Expected, nil
	}

	store, err := sessionlog.NewStore(dbPath)
	if err != nil {
		return replay.LoggedSession{}, nil, err
	}
	defer store.Close()

	data, err := store.LoadSession(sessionID)
	if err != nil {
		return replay.LoggedSession{}, nil, err
	}
	if !data.HasBaseline {
		return replay.LoggedSession{}, nil, fmt.Errorf("session %s has no recorded baseline", sessionID)
	}
	return replay.LoggedSession{
		SessionID: data.SessionID,
		Config:    data.Config,
		Baseline:  data.Baseline,
		Records:   data.Records,
	}, nil, nil
}

// #endregion load

// #region output
func printTable(results []replay.Result) {
	fmt.Printf("%-5s %-20s %12s %12s %12s %12s %-10s %s\n",
		"iter", "probe", "llr(log)", "llr(replay)", "odds(log)", "odds(replay)", "decision", "match")
	for _, r := range results {
		mark := "ok"
		if !r.Match {
			mark = "DIVERGED"
		}
		fmt.Printf("%-5d %-20s %12.6f %12.6f %12.6f %12.6f %-10s %s\n",
			r.Index, r.Probe, r.LoggedLLR, r.ReplayedLLR, r.LoggedOdds, r.ReplayedOdds, r.ReplayedDecision, mark)
	}
}

// #endregion output

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
