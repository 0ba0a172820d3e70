package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/lukejeff/swapbench/internal/batch"
	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/models"
	"github.com/lukejeff/swapbench/internal/results"
	"github.com/spf13/cobra"
)

var (
	goodColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	badColor   = color.New(color.FgRed)
	labelColor = color.New(color.Bold)
)

func newStatusCmd() *cobra.Command {
	var (
		configPath string
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show batch progress and recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			return runStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	sources, targets, err := loadImages(cfg)
	if err != nil {
		return err
	}

	labelColor.Fprintln(out, "Progress")
	for _, variant := range variantSlugs(cfg.APIs) {
		expected := results.Expected(imageStems(sources), imageStems(targets), []string{variant})
		missing, err := store.Missing(expected)
		if err != nil {
			return err
		}
		done := len(expected) - len(missing)
		c := statusColor(done, len(expected))
		fmt.Fprintf(out, "  %-10s %s\n", variant, c.Sprintf("%d/%d done", done, len(expected)))
	}

	if log, err := results.OpenCSVLog(csvLogPath(cfg)); err == nil {
		if rows, err := log.Rows(); err == nil {
			fmt.Fprintf(out, "  %-10s %d logged requests\n", "csv", rows)
		}
	}

	gormDB, err := openDB(cfg)
	if err != nil {
		// No database yet is fine for status.
		return nil
	}
	var sessions []models.RunSession
	if err := gormDB.Order("started_at desc").Limit(5).Find(&sessions).Error; err != nil {
		return nil
	}
	if len(sessions) == 0 {
		return nil
	}

	labelColor.Fprintln(out, "Recent sessions")
	for _, s := range sessions {
		state := warnColor.Sprint("running")
		if s.FinishedAt != nil {
			if s.Failed == 0 {
				state = goodColor.Sprint("ok")
			} else {
				state = badColor.Sprintf("%d failed", s.Failed)
			}
		}
		fmt.Fprintf(out, "  %s  %s  %s  %d/%d  %s\n",
			s.StartedAt.Format("2006-01-02 15:04"), s.APIVariant, s.FaceMode,
			s.Completed, s.Planned, state)
	}
	return nil
}

func statusColor(done, total int) *color.Color {
	switch {
	case total == 0 || done == total:
		return goodColor
	case done == 0:
		return badColor
	default:
		return warnColor
	}
}

func printSummary(out io.Writer, sum *batch.Summary) {
	labelColor.Fprintln(out, "Batch complete")
	fmt.Fprintf(out, "  attempted: %d\n", sum.Attempted)
	fmt.Fprintf(out, "  succeeded: %s\n", goodColor.Sprintf("%d", sum.Succeeded))
	if sum.Failed > 0 {
		fmt.Fprintf(out, "  failed:    %s\n", badColor.Sprintf("%d", sum.Failed))
	}
	fmt.Fprintf(out, "  skipped:   %d\n", sum.Skipped)
	fmt.Fprintf(out, "  remaining: %d\n", sum.Remaining)
	fmt.Fprintf(out, "  elapsed:   %s (%.1f%% success)\n",
		sum.Elapsed.Round(time.Second), sum.SuccessRate()*100)
}
