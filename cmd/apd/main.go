package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observability"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/observe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/policy"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/probe"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/session"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sessionlog"
	"github.com/danielpatrickdp/active-discovery/go-controller/internal/sprt"
)

// #region main
func main() {
	var (
		configPath = flag.String("config", "", "TOML session config (defaults used when empty)")
		dbPath     = flag.String("db", envOr("DISCOVERY_DB", "discovery.db"), "session log database path")
		mode       = flag.String("mode", "", "selection mode override: kl_optimal | round_robin | fixed_sequence")
		alpha      = flag.Float64("alpha", 0, "Type I error target override (0 = from config)")
		beta       = flag.Float64("beta", 0, "Type II error target override (0 = from config)")
		maxIter    = flag.Int("max-iterations", 0, "iteration budget override (0 = from config)")
		simSeed    = flag.Int64("sim-seed", 1, "simulated transceiver RNG seed")
		adaptive   = flag.Bool("sim-adaptive", false, "simulated channel echoes probes back")
		jsonLogs   = flag.Bool("json-logs", false, "emit raw JSON log lines")
		logLevel   = flag.String("log-level", "info", "zerolog level: debug | info | warn | error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := observability.InitLogger("apd", level, *jsonLogs)

	cfg := session.DefaultConfig()
	if *configPath != "" {
		cfg, err = loadSessionConfig(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("config load failed")
		}
	}
	if *mode != "" {
		cfg.SelectionMode = policy.Mode(*mode)
	}
	if *alpha > 0 {
		cfg.Alpha = *alpha
	}
	if *beta > 0 {
		cfg.Beta = *beta
	}
	if *maxIter > 0 {
		cfg.MaxIterations = *maxIter
	}

	store, err := sessionlog.NewStore(*dbPath)
	if err != nil {
		logger.Fatal().Err(err).Str("db", *dbPath).Msg("failed to open session log")
	}
	defer store.Close()

	simCfg := observe.DefaultSimConfig()
	simCfg.Seed = *simSeed
	simCfg.Adaptive = *adaptive
	trx := observe.NewSimTransceiver(simCfg)

	runner, err := session.NewRunner(cfg, probe.StandardCatalog(), trx, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid session configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, runErr := runner.Run(ctx)
	printSummary(sum)

	if sum.Phase == session.PhaseAborted {
		logger.Error().Err(runErr).Msg("session aborted")
		os.Exit(1)
	}
}

// #endregion main

// #region output
func printSummary(sum session.Summary) {
	fmt.Printf("session    %s\n", sum.SessionID)
	fmt.Printf("phase      %s\n", sum.Phase)
	switch sum.Decision {
	case sprt.DecideH1:
		fmt.Println("decision   h1: adaptive response detected")
	case sprt.DecideH0:
		fmt.Println("decision   h0: background noise confirmed")
	default:
		fmt.Println("decision   undecided")
	}
	fmt.Printf("iterations %d\n", sum.Iterations)
	fmt.Printf("elapsed    %s\n", sum.Elapsed.Round(0))
	fmt.Printf("reason     %s\n", sum.Reason)
	if sum.Detail != "" {
		fmt.Printf("detail     %s\n", sum.Detail)
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
