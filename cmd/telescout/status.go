package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"telescout/internal/types"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show discovery totals and recent activity",
	Long:  `Display group counts by join status, recent search runs, and recent events.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		defer store.Close()

		ctx := context.Background()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== telescout status ==="))

		counts, err := store.CountGroupsByStatus(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s\n", yellow("Groups:"))
		total := 0
		for _, status := range []types.JoinStatus{
			types.StatusJoined, types.StatusJoinPending, types.StatusJoinFailed,
			types.StatusDiscovered, types.StatusSkipped, types.StatusLeft, types.StatusRemoved,
		} {
			n := counts[status]
			total += n
			if n == 0 {
				continue
			}
			label := fmt.Sprintf("%-12s %d", status, n)
			switch status {
			case types.StatusJoined:
				fmt.Printf("  %s %s\n", green("●"), label)
			case types.StatusJoinFailed, types.StatusRemoved:
				fmt.Printf("  %s %s\n", red("●"), label)
			default:
				fmt.Printf("  %s %s\n", gray("○"), label)
			}
		}
		if total == 0 {
			fmt.Printf("  %s\n", gray("No groups discovered yet"))
		}

		fmt.Printf("\n%s\n", yellow("Recent searches:"))
		runs, err := store.RecentSearchRuns(ctx, statusLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(runs) == 0 {
			fmt.Printf("  %s\n", gray("none"))
		}
		for _, r := range runs {
			mark := green("✓")
			if !r.Success {
				mark = red("✗")
			}
			fmt.Printf("  %s %-28q %3d results, %2d new  %s\n",
				mark, r.Keyword, r.ResultsCount, r.NewCount,
				gray(r.StartedAt.Format(time.RFC3339)))
		}

		fmt.Printf("\n%s\n", yellow("Recent events:"))
		events, err := store.RecentEvents(ctx, statusLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(events) == 0 {
			fmt.Printf("  %s\n", gray("none"))
		}
		for _, e := range events {
			fmt.Printf("  %-18s group=%d %s\n", e.EventType, e.RemoteID,
				gray(e.CreatedAt.Format(time.RFC3339)))
		}
		fmt.Println()

		if counts[types.StatusJoined] == 0 && total > 0 {
			fmt.Printf("%s\n\n", gray("No joined groups yet. Run 'telescout scan' or check rate budgets."))
		}
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "how many recent runs/events to show")
	rootCmd.AddCommand(statusCmd)
}
