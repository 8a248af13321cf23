package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sessionlog"
)

// #region main
func main() {
	var (
		dbPath    = flag.String("db", envOr("DISCOVERY_DB", "discovery.db"), "session log database path")
		sessionID = flag.String("session", "", "show one session in detail")
		asJSON    = flag.Bool("json", false, "emit the iteration stream as JSON lines")
		limit     = flag.Int("limit", 20, "number of sessions to list")
	)
	flag.Parse()

	store, err := sessionlog.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *sessionID == "" {
		if err := listSessions(store, *limit); err != nil {
			fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *asJSON {
		if err := store.ExportJSONL(os.Stdout, *sessionID); err != nil {
			fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := showSession(store, *sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list
func listSessions(store *sessionlog.Store, limit int) error {
	rows, err := store.ListSessions(limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}

	fmt.Printf("%-36s %-25s %-16s %-10s %5s %s\n", "session", "started", "phase", "decision", "iters", "reason")
	for _, r := range rows {
		fmt.Printf("%-36s %-25s %-16s %-10s %5d %s\n",
			r.SessionID, r.StartedAt.Format(time.RFC3339), r.Phase, r.Decision, r.Iterations, r.Reason)
	}
	return nil
}

// #endregion list

// #region show
func showSession(store *sessionlog.Store, id string) error {
	data, err := store.LoadSession(id)
	if err != nil {
		return err
	}

	fmt.Printf("session    %s\n", data.SessionID)
	fmt.Printf("started    %s\n", data.StartedAt.Format(time.RFC3339))
	fmt.Printf("alpha/beta %.4f / %.4f\n", data.Config.Alpha, data.Config.Beta)
	fmt.Printf("mode       %s\n", data.Config.SelectionMode)
	if data.HasBaseline {
		fmt.Printf("baseline   power %.4f ± %.4f over %d windows\n",
			data.Baseline.PowerMean, data.Baseline.PowerStd, data.Baseline.Windows)
	} else {
		fmt.Println("baseline   (not recorded)")
	}
	if data.Completed {
		fmt.Printf("phase      %s\n", data.Summary.Phase)
		fmt.Printf("decision   %s after %d iterations (%s)\n",
			data.Summary.Decision, data.Summary.Iterations, data.Summary.Reason)
		if data.Summary.Detail != "" {
			fmt.Printf("detail     %s\n", data.Summary.Detail)
		}
	} else {
		fmt.Println("phase      (incomplete)")
	}

	if len(data.Records) == 0 {
		return nil
	}
	fmt.Printf("\n%-5s %-20s %12s %12s %12s %s\n", "iter", "probe", "anomaly", "llr", "log_odds", "decision")
	for _, rec := range data.Records {
		fmt.Printf("%-5d %-20s %12.4f %12.6f %12.6f %s\n",
			rec.Index, rec.Probe.Type, rec.Metrics.AnomalyScore, rec.LLR, rec.State.LogOdds, rec.State.Decision)
	}
	return nil
}

// #endregion show

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
