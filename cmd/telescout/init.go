package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"telescout/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file and create the database",
	Long: `Create a starter telescout.yaml in the current directory and
initialize the SQLite database it points at.

Edit the topics section before running a scan: the defaults are only an
example profile.

Example:
  telescout init
  telescout init --config configs/prod.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.WriteExample(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		defer store.Close()

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s wrote %s\n", green("✓"), configPath)
		fmt.Printf("%s created %s\n", green("✓"), cfg.DBPath)
		fmt.Println("\nEdit the topics section, then run 'telescout scan' for a single pass.")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
