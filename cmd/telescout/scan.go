package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"telescout/internal/telegram"
	"telescout/internal/types"
)

var (
	scanTopic    string
	scanKeywords []string
	scanLimit    int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single discovery pass",
	Long: `Run one discovery pass over the configured topics and exit.

Each pass expands the topic's keywords into search queries, searches
through the rate gate, classifies every candidate, and joins accepted
groups. Use --topic to scan a single topic, --keyword to override the
topic's keyword list for this pass, and --limit to cap results per query.

Example:
  telescout scan
  telescout scan --topic ielts
  telescout scan --topic ielts --keyword "ielts mock" --limit 20`,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger()
		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		defer store.Close()

		topics, err := topicsFor(cfg, scanTopic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(scanKeywords) > 0 {
			for i := range topics {
				topics[i].Keywords = scanKeywords
			}
		}
		if scanLimit > 0 {
			cfg.Engine.SearchLimit = scanLimit
		}

		rates := newRates(cfg)
		eng := mustBuildEngine(cfg, store, rates, log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		for _, topic := range topics {
			summary, err := eng.RunPass(ctx, topic, 1)
			if summary != nil {
				printSummary(summary)
			}
			if err != nil {
				if ctx.Err() != nil {
					fmt.Println("\nInterrupted.")
					return
				}
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				if telegram.IsFatal(err) {
					os.Exit(1)
				}
			}
		}
	},
}

func printSummary(s *types.PassSummary) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("\n%s\n", cyan(fmt.Sprintf("=== Pass: %s ===", s.Topic)))
	fmt.Printf("  Queries:    %d\n", s.Queries)
	fmt.Printf("  Candidates: %d\n", s.CandidatesSeen)
	fmt.Printf("  Accepted:   %s\n", green(fmt.Sprintf("%d", s.Accepted)))
	fmt.Printf("  Borderline: %s\n", yellow(fmt.Sprintf("%d", s.Borderline)))
	fmt.Printf("  Rejected:   %d\n", s.Rejected)
	fmt.Printf("  Joined:     %s (of %d attempted)\n", green(fmt.Sprintf("%d", s.JoinsSucceeded)), s.JoinsAttempted)
	if s.Degraded {
		fmt.Printf("  %s\n", yellow("AI keyword expansion was degraded; static keywords used"))
	}
	fmt.Printf("  Duration:   %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
}

func init() {
	scanCmd.Flags().StringVar(&scanTopic, "topic", "", "scan only this topic")
	scanCmd.Flags().StringSliceVar(&scanKeywords, "keyword", nil, "override the topic's keywords for this pass (repeatable)")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "max results per search query (overrides config)")
	rootCmd.AddCommand(scanCmd)
}
