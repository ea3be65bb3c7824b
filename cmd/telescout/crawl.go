package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"telescout/internal/crawler"
	"telescout/internal/telegram/bridge"
)

var (
	crawlTopic    string
	crawlMessages int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Mine joined groups for links to new groups",
	Long: `Scan recent messages of joined groups for t.me links and @mentions,
resolve the handles, and record classified candidates. Crawled groups
are never auto-joined; accepted ones are picked up by the next scan.

Example:
  telescout crawl
  telescout crawl --topic ielts --messages 200`,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger()
		cfg := mustLoadConfig()
		store := mustOpenStore(cfg)
		defer store.Close()

		topics, err := topicsFor(cfg, crawlTopic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		c, err := crawler.New(crawler.Config{
			Client:       bridge.New(cfg.BridgeAddr),
			Store:        store,
			Rates:        newRates(cfg),
			Logger:       log,
			MessageLimit: crawlMessages,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()

		for _, topic := range topics {
			summary, err := c.Crawl(ctx, topic)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("\n%s\n", cyan(fmt.Sprintf("=== crawl: %s ===", topic.Name)))
			fmt.Printf("  Groups scanned: %d (%d messages)\n", summary.GroupsScanned, summary.Messages)
			fmt.Printf("  Handles found:  %d\n", summary.HandlesFound)
			fmt.Printf("  Resolved:       %d\n", summary.Resolved)
			fmt.Printf("  New groups:     %s (%d accepted, %d rejected)\n",
				green(fmt.Sprintf("%d", summary.NewGroups)), summary.Accepted, summary.Rejected)
		}
		fmt.Println()
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlTopic, "topic", "", "crawl against only this topic profile")
	crawlCmd.Flags().IntVar(&crawlMessages, "messages", 100, "recent messages to scan per group")
	rootCmd.AddCommand(crawlCmd)
}
