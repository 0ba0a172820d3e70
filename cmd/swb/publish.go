package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/publish"
	"github.com/lukejeff/swapbench/internal/report"
	"github.com/spf13/cobra"
)

func newPublishCmd() *cobra.Command {
	var (
		configPath string
		skipPages  bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Push results and review pages to GitHub Pages",
		Long: "Regenerates the review pages and uploads them with the result images to " +
			"the configured GitHub Pages branch, so a batch can be reviewed from anywhere.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, configPath, skipPages)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	cmd.Flags().BoolVar(&skipPages, "skip-pages", false, "upload without regenerating the review pages")
	return cmd
}

func runPublish(cmd *cobra.Command, configPath string, skipPages bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Publish.Owner == "" || cfg.Publish.Repo == "" {
		return fmt.Errorf("publish.owner and publish.repo must be set in %s", configPath)
	}

	token, err := config.LoadEnv().RequireGitHub()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	if !skipPages {
		r, err := report.Build(store)
		if err != nil {
			return err
		}
		if err := report.WritePages(r, store.Dir); err != nil {
			return err
		}
		fmt.Fprintf(out, "Regenerated review pages for %d results\n", len(r.Items))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pub, err := publish.New(ctx, publish.Opts{
		Token:  token,
		Owner:  cfg.Publish.Owner,
		Repo:   cfg.Publish.Repo,
		Branch: cfg.Publish.Branch,
		Dir:    cfg.Publish.Dir,
		Out:    out,
	})
	if err != nil {
		return err
	}

	n, err := pub.PublishDir(ctx, store.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Published %d files to %s\n", n, pub.PageURL())
	return nil
}
