package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhinav24jha/blank-slate/internal/config"
	"github.com/abhinav24jha/blank-slate/internal/live"
)

var (
	flagRunsDir      string
	flagLiveOut      string
	flagLiveInterval time.Duration
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Republish analytics from run logs while scenarios execute",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := live.NewPublisher(flagRunsDir, flagLiveOut, cfg.Bins, cfg.DurationS, flagLiveInterval)
		return p.Run(ctx)
	},
}

func init() {
	liveCmd.Flags().StringVar(&flagRunsDir, "runs", "out/runs", "directory containing per-run logs")
	liveCmd.Flags().StringVar(&flagLiveOut, "out", "analytics.json", "analytics output path")
	liveCmd.Flags().DurationVar(&flagLiveInterval, "interval", time.Second, "republish interval")
	rootCmd.AddCommand(liveCmd)
}
