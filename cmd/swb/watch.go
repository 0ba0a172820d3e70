package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/lukejeff/swapbench/internal/batch"
	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/results"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func newWatchCmd() *cobra.Command {
	var (
		configPath string
		schedule   string
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run missing swaps on a schedule until everything is done",
		Long: "Wakes up on a cron schedule and runs a capped batch of whatever " +
			"combinations are still missing. Exits once the results directory is " +
			"complete. Useful for spreading a large batch across rate-limit windows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchCmd(cmd, configPath, schedule, batchSize)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	cmd.Flags().StringVar(&schedule, "cron", "", "5-field cron schedule (default from config)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "swaps per wake-up (default from config)")
	return cmd
}

func runWatchCmd(cmd *cobra.Command, configPath, schedule string, batchSize int) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if schedule == "" {
		schedule = cfg.Watch.Cron
	}
	if batchSize <= 0 {
		batchSize = cfg.Watch.BatchSize
	}
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("parse cron %q: %w", schedule, err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	creds := config.LoadEnv()
	swappers, err := buildSwappers(cfg, creds, cfg.APIs)
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

	runner := &batch.Runner{
		Store:    store,
		Log:      log,
		DB:       gormDB,
		Limiter:  newLimiter(cfg),
		Out:      out,
		FaceMode: cfg.FaceMode,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(out, "Watching on schedule %q, %d swaps per run (Ctrl+C to stop)\n", schedule, batchSize)

	for {
		sources, targets, err := loadImages(cfg)
		if err != nil {
			return err
		}
		sum, err := runner.Run(ctx, batch.Plan{
			Sources:  sources,
			Targets:  targets,
			Swappers: swappers,
			Limit:    batchSize,
			Resume:   true,
		})
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(out, "Stopped")
				return nil
			}
			return err
		}
		printSummary(out, sum)
		sendNotifications(out, cfg, creds, strings.Join(cfg.APIs, ","), sum)

		if sum.Remaining == 0 {
			fmt.Fprintln(out, "All combinations complete")
			return nil
		}

		next := sched.Next(time.Now())
		fmt.Fprintf(out, "%d remaining; next run at %s\n", sum.Remaining, next.Format("15:04:05"))
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Stopped")
			return nil
		case <-time.After(time.Until(next)):
		}
	}
}
