package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/lukejeff/swapbench/internal/batch"
	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/notify"
	"github.com/lukejeff/swapbench/internal/results"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		apis       []string
		faceMode   string
		limit      int
		fresh      bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the face-swap batch",
		Long: "Pairs every source image with every target image for each configured API " +
			"variant and swaps whatever is missing from the results directory. " +
			"Already-completed combinations are skipped, so interrupted batches pick " +
			"up where they left off.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, configPath, apis, faceMode, limit, fresh, dryRun)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	cmd.Flags().StringSliceVar(&apis, "apis", nil, "API variants to run (default from config)")
	cmd.Flags().StringVar(&faceMode, "face-mode", "", "single or multi (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of swaps this run (0 = no cap)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "redo combinations that already have results")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the missing combinations and exit")
	return cmd
}

func runRun(cmd *cobra.Command, configPath string, apis []string, faceMode string, limit int, fresh, dryRun bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(apis) == 0 {
		apis = cfg.APIs
	}
	if faceMode != "" {
		cfg.FaceMode = faceMode
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	sources, targets, err := loadImages(cfg)
	if err != nil {
		return err
	}

	if dryRun {
		return printMissing(out, store, sources, targets, apis)
	}

	creds := config.LoadEnv()
	swappers, err := buildSwappers(cfg, creds, apis)
	if err != nil {
		return err
	}

	log, err := results.OpenCSVLog(csvLogPath(cfg))
	if err != nil {
		return err
	}
	gormDB, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("connect db (run `swb db init` first): %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := &batch.Runner{
		Store:    store,
		Log:      log,
		DB:       gormDB,
		Limiter:  newLimiter(cfg),
		Out:      out,
		FaceMode: cfg.FaceMode,
	}
	sum, err := runner.Run(ctx, batch.Plan{
		Sources:  sources,
		Targets:  targets,
		Swappers: swappers,
		Limit:    limit,
		Resume:   !fresh,
	})
	if err != nil {
		return err
	}

	printSummary(out, sum)
	sendNotifications(out, cfg, creds, strings.Join(apis, ","), sum)
	return nil
}

func printMissing(out io.Writer, store *results.Store, sources, targets, apis []string) error {
	expected := results.Expected(imageStems(sources), imageStems(targets), variantSlugs(apis))
	missing, err := store.Missing(expected)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d combinations missing\n", len(missing), len(expected))
	for _, c := range missing {
		fmt.Fprintf(out, "  %s (%s)\n", c.Key(), c.Variant)
	}
	return nil
}

func imageStems(paths []string) []string {
	stems := make([]string, len(paths))
	for i, p := range paths {
		stems[i] = results.ImageStem(p)
	}
	return stems
}

// sendNotifications posts the batch summary to every configured channel.
// Failures are warnings; the batch already ran.
func sendNotifications(out io.Writer, cfg *config.Config, creds *config.Credentials, variants string, sum *batch.Summary) {
	var notifiers notify.Multi
	if cfg.Notify.SlackChannel != "" && creds.SlackToken != "" {
		if n, err := notify.NewSlack(notify.SlackOpts{Token: creds.SlackToken, Channel: cfg.Notify.SlackChannel}); err == nil {
			notifiers = append(notifiers, n)
		}
	}
	if cfg.Notify.DiscordChannelID != "" && creds.DiscordToken != "" {
		if n, err := notify.NewDiscord(notify.DiscordOpts{Token: creds.DiscordToken, ChannelID: cfg.Notify.DiscordChannelID}); err == nil {
			notifiers = append(notifiers, n)
		}
	}
	if len(notifiers) == 0 {
		return
	}
	if err := notifiers.Notify(notify.BatchDone(variants, sum)); err != nil {
		fmt.Fprintf(out, "warning: notify: %v\n", err)
	}
}
