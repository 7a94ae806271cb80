package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bubbles",
		Short:         "Turn hot Reddit threads into ranked, enriched news bubbles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(runCmd())
	root.AddCommand(snapshotCmd())
	root.AddCommand(labelCmd())
	root.AddCommand(feedsCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(daemonCmd())

	return root
}

func runCmd() *cobra.Command {
	var (
		output  string
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full batch: collect, cluster, enrich and publish",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), output, noStore)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: from config)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip the feed history database and alerts")
	return cmd
}

func snapshotCmd() *cobra.Command {
	var (
		output string
		top    int
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write the unclustered top threads without enrichment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), output, top)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: from config)")
	cmd.Flags().IntVar(&top, "top", 10, "number of threads to keep")
	return cmd
}

func labelCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Add a label and context to every item of an existing feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabel(cmd.Context(), input, output)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "feed to label (default: snapshot path from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: output path from config)")
	return cmd
}

func feedsCmd() *cobra.Command {
	var (
		since      string
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "List stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeeds(cmd.Context(), since, jsonOutput, limit)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only runs generated at or after this date (e.g. 2026-03-01, \"Mar 1 2026 18:00\")")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func daemonCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
