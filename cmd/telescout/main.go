package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbOverride string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "telescout",
	Short: "Topic-driven Telegram group discovery and auto-join",
	Long: `telescout discovers public Telegram groups for configured topics.

It expands topic keywords into search queries (optionally with AI
assistance), searches through a rate-controlled gate, classifies every
candidate against the topic profile, and joins accepted groups while
respecting the platform's flood-wait penalties. Every decision is
persisted to SQLite.

The account session is owned by a separate bridge process; point
bridge_addr in the config (or TELESCOUT_BRIDGE_ADDR) at it.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "telescout.yaml", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
