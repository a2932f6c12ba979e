package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abhinav24jha/blank-slate/internal/brain"
	"github.com/abhinav24jha/blank-slate/internal/config"
	"github.com/abhinav24jha/blank-slate/internal/experiment"
	"github.com/abhinav24jha/blank-slate/internal/scenario"
)

var (
	flagScenarios []string
	flagSeed      int64
	flagAgents    int
	flagDuration  float64
	flagBins      int
	flagSpeed     float64
	flagBaseline  string
	flagOut       string
	flagSpawnMode string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a baseline-vs-scenarios experiment",
	RunE:  runExperiment,
}

func init() {
	runCmd.Flags().StringSliceVar(&flagScenarios, "scenario", nil, "scenario JSON file (repeatable)")
	runCmd.Flags().Int64Var(&flagSeed, "seed", 0, "override seed")
	runCmd.Flags().IntVar(&flagAgents, "agents", 0, "override agent count")
	runCmd.Flags().Float64Var(&flagDuration, "duration", 0, "override simulated duration (s)")
	runCmd.Flags().IntVar(&flagBins, "bins", 0, "override series bins")
	runCmd.Flags().Float64Var(&flagSpeed, "speed", 0, "wall pacing multiplier (0 = fast)")
	runCmd.Flags().StringVar(&flagBaseline, "baseline", "", "override baseline asset dir")
	runCmd.Flags().StringVar(&flagOut, "out", "", "override experiment output dir")
	runCmd.Flags().StringVar(&flagSpawnMode, "spawn-mode", "", "agent placement: center, random_all, cluster")
	rootCmd.AddCommand(runCmd)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	applyOverrides(cmd, cfg)

	var scns []*scenario.Scenario
	for _, path := range flagScenarios {
		s, err := scenario.LoadFile(path)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", path, err)
		}
		scns = append(scns, s)
	}

	dec, err := buildDecider(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := experiment.Run(ctx, scns, dec, experiment.Options{
		Seed:        cfg.Seed,
		AgentCount:  cfg.AgentCount,
		DurationS:   cfg.DurationS,
		Bins:        cfg.Bins,
		Speed:       cfg.Speed,
		SpawnMode:   cfg.SpawnMode,
		MeetingProb: cfg.MeetingProb,
		BaselineDir: cfg.BaselineDir,
		OutDir:      cfg.ExpOutDir,
		StorePath:   cfg.StorePath,
	})
	if res != nil {
		printSummary(res)
	}
	return err
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("seed") {
		cfg.Seed = flagSeed
	}
	if cmd.Flags().Changed("agents") {
		cfg.AgentCount = flagAgents
	}
	if cmd.Flags().Changed("duration") {
		cfg.DurationS = flagDuration
	}
	if cmd.Flags().Changed("bins") {
		cfg.Bins = flagBins
	}
	if cmd.Flags().Changed("speed") {
		cfg.Speed = flagSpeed
	}
	if flagBaseline != "" {
		cfg.BaselineDir = flagBaseline
	}
	if flagOut != "" {
		cfg.ExpOutDir = flagOut
	}
	if flagSpawnMode != "" {
		cfg.SpawnMode = flagSpawnMode
	}
}

// buildDecider assembles the configured decision strategy. No provider
// means the deterministic baseline policy.
func buildDecider(cfg *config.Config) (brain.Decider, error) {
	timeout := time.Duration(cfg.Oracle.TimeoutS * float64(time.Second))
	switch cfg.Oracle.Provider {
	case "gemini":
		p, err := brain.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.Oracle.Model)
		if err != nil {
			return nil, err
		}
		slog.Info("oracle decider", "provider", p.Name(), "timeout", timeout)
		return brain.NewOracle(p, timeout), nil
	case "ollama":
		p := brain.NewOllama(cfg.Oracle.BaseURL, cfg.Oracle.Model)
		slog.Info("oracle decider", "provider", p.Name(), "timeout", timeout)
		return brain.NewOracle(p, timeout), nil
	default:
		return brain.Deterministic{}, nil
	}
}

func printSummary(res *experiment.Result) {
	fmt.Printf("\nExperiment %s\n", res.ExpID)
	for _, env := range res.Envs {
		if env.Err != nil {
			fmt.Printf("  %-5s %-12s FAILED: %v\n", env.EnvKey, env.ScenarioID, env.Err)
			continue
		}
		if env.Agg == nil {
			continue
		}
		fmt.Printf("  %-5s %-12s decisions=%s arrivals=%s spend=$%s\n",
			env.EnvKey, env.ScenarioID,
			humanize.Comma(int64(env.Agg.TotalDecisions())),
			humanize.Comma(int64(env.Agg.TotalArrivals())),
			humanize.CommafWithDigits(env.Agg.TotalSpend(), 2))
	}
	fmt.Printf("  analytics: %s\n", res.AnalyticsPath)
}
