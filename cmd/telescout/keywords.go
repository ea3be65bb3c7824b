package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	keywordsTopic string
	keywordsRound int
	keywordsStats bool
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Preview query expansion or show keyword usage stats",
	Long: `Without flags, print the search queries a pass would run for each
topic, including AI-expanded ones when AI is enabled and the round is
an AI round.

With --stats, show how often each keyword has actually been searched.

Example:
  telescout keywords
  telescout keywords --topic ielts --round 2
  telescout keywords --stats`,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger()
		cfg := mustLoadConfig()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if keywordsStats {
			store := mustOpenStore(cfg)
			defer store.Close()

			stats, err := store.KeywordStats(context.Background(), 50)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("\n%s\n", cyan("=== keyword usage ==="))
			if len(stats) == 0 {
				fmt.Printf("  %s\n", gray("no searches recorded yet"))
			}
			for _, s := range stats {
				fmt.Printf("  %4d  %-32s %s\n", s.UseCount, s.Keyword,
					gray("last "+s.LastUsedAt.Format("2006-01-02 15:04")))
			}
			fmt.Println()
			return
		}

		topics, err := topicsFor(cfg, keywordsTopic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		source := newSource(cfg, log)
		for _, topic := range topics {
			queries, err := source.Expand(context.Background(), topic, keywordsRound)
			if err != nil {
				// Degraded expansion still returns usable queries.
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			fmt.Printf("\n%s\n", cyan(fmt.Sprintf("=== %s (%d queries) ===", topic.Name, len(queries))))
			for _, q := range queries {
				fmt.Printf("  %-40s %s\n", q.Text, gray(string(q.Origin)))
			}
		}
		fmt.Println()
	},
}

func init() {
	keywordsCmd.Flags().StringVar(&keywordsTopic, "topic", "", "expand only this topic")
	keywordsCmd.Flags().IntVar(&keywordsRound, "round", 1, "round number used for AI cadence")
	keywordsCmd.Flags().BoolVar(&keywordsStats, "stats", false, "show keyword usage counts instead")
	rootCmd.AddCommand(keywordsCmd)
}
