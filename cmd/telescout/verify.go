package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"telescout/internal/monitor"
	"telescout/internal/telegram/bridge"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify membership of joined groups",
	Long: `Check every joined group against the platform and reconcile the
stored status. Groups we left show up as left; groups we were kicked
or banned from show up as removed, with a membership_lost event
recorded either way.

Example:
  telescout verify`,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger()
		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		defer store.Close()

		m, err := monitor.New(monitor.Config{
			Client: bridge.New(cfg.BridgeAddr),
			Store:  store,
			Rates:  newRates(cfg),
			Logger: log,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		summary, err := m.Sweep(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("\n%s\n", cyan("=== membership sweep ==="))
		fmt.Printf("  Checked:      %d\n", summary.Checked)
		fmt.Printf("  Still joined: %s\n", green(fmt.Sprintf("%d", summary.StillJoined)))
		fmt.Printf("  Left:         %d\n", summary.Left)
		fmt.Printf("  Removed:      %s\n", red(fmt.Sprintf("%d", summary.Removed)))
		if summary.CheckFailed > 0 {
			fmt.Printf("  Failed:       %s\n", red(fmt.Sprintf("%d", summary.CheckFailed)))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
