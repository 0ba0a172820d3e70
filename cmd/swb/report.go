package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Review pages over the results directory",
	}

	cmd.AddCommand(newReportGenerateCmd())
	cmd.AddCommand(newReportServeCmd())
	return cmd
}

func newReportGenerateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write static review pages next to the result images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportGenerate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	return cmd
}

func runReportGenerate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	r, err := report.Build(store)
	if err != nil {
		return err
	}
	if err := report.WritePages(r, store.Dir); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s, %s and %s for %d results in %s\n",
		report.IndexPage, report.ComparePage, report.ReviewPage, len(r.Items), store.Dir)
	return nil
}

func newReportServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review pages over HTTP",
		Long:  "Serves the review pages and result images locally. Pages are rebuilt per request, so a running batch shows up on refresh.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	return cmd
}

func runReportServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	// The session endpoints work without a database; they are just absent.
	gormDB, err := openDB(cfg)
	if err != nil {
		gormDB = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return report.Serve(ctx, report.ServeOpts{
		Store: store,
		DB:    gormDB,
		Port:  port,
		Out:   cmd.OutOrStdout(),
	})
}
