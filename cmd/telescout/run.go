package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"telescout/internal/runner"
)

var (
	runMaxRounds int
	runInterval  time.Duration
	runTopic     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run discovery continuously",
	Long: `Run the discovery loop until stopped with Ctrl+C.

Each round covers every configured topic, then sleeps for the
configured interval. The round counter drives AI keyword expansion
cadence (ai.every_n_rounds). Long flood-wait pauses are surfaced in
the runner state as BACKING_OFF.

Exit status is 0 on a graceful stop and 1 when a fatal transport error
(revoked session, ban) shuts the loop down.

Example:
  telescout run
  telescout run --interval 30m
  telescout run --topic ielts --max-rounds 5`,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger()
		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		defer store.Close()

		maxRounds := cfg.Runner.MaxRounds
		if runMaxRounds > 0 {
			maxRounds = runMaxRounds
		}
		interval := cfg.PassInterval()
		if runInterval > 0 {
			interval = runInterval
		}
		topics, err := topicsFor(cfg, runTopic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		rates := newRates(cfg)
		eng := mustBuildEngine(cfg, store, rates, log)

		r, err := runner.New(runner.Config{
			Engine:    eng,
			Topics:    topics,
			Interval:  interval,
			MaxRounds: maxRounds,
			Logger:    log,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		rates.OnLongWait(r.NoteBackoff)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info("starting continuous discovery",
			"topics", len(topics), "interval", interval)
		if err := r.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log.Info("stopped")
	},
}

func init() {
	runCmd.Flags().IntVar(&runMaxRounds, "max-rounds", 0, "stop after this many rounds (overrides config)")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "delay between rounds (overrides config)")
	runCmd.Flags().StringVar(&runTopic, "topic", "", "run only this topic")
	rootCmd.AddCommand(runCmd)
}
