package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/results"
	"github.com/lukejeff/swapbench/internal/segmind"
	"github.com/spf13/cobra"
)

func newDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Diagnostics against the swap APIs",
	}

	cmd.AddCommand(newDebugFacesCmd())
	return cmd
}

func newDebugFacesCmd() *cobra.Command {
	var (
		configPath string
		source     string
		target     string
		api        string
		maxIndex   int
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "faces",
		Short: "Probe which face indexes an image pair responds to",
		Long: "Swaps one source/target pair once per source/target index combination " +
			"and saves each output, to work out which detected face is which before " +
			"committing a full batch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebugFaces(cmd, configPath, source, target, api, maxIndex, outDir)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	cmd.Flags().StringVar(&source, "source", "", "source image path")
	cmd.Flags().StringVar(&target, "target", "", "target image path")
	cmd.Flags().StringVar(&api, "api", "v2", "Segmind variant to probe")
	cmd.Flags().IntVar(&maxIndex, "max-index", 2, "highest face index to try on each side")
	cmd.Flags().StringVar(&outDir, "out", "debug-faces", "directory for probe outputs")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("target")
	return cmd
}

func runDebugFaces(cmd *cobra.Command, configPath, source, target, api string, maxIndex int, outDir string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	variant, err := segmind.ParseVariant(api)
	if err != nil {
		return err
	}
	client, err := segmindClient(cfg, config.LoadEnv())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	sourceB64, _, err := results.EncodeImageBase64(source)
	if err != nil {
		return err
	}
	targetB64, _, err := results.EncodeImageBase64(target)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	total := (maxIndex + 1) * (maxIndex + 1)
	n := 0
	for si := 0; si <= maxIndex; si++ {
		for ti := 0; ti <= maxIndex; ti++ {
			n++
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "[%d/%d] source face %d -> target face %d\n", n, total, si, ti)
			res, err := client.Swap(ctx, variant, segmind.SwapRequest{
				SourceB64:   sourceB64,
				TargetB64:   targetB64,
				SourceFaces: fmt.Sprintf("%d", si),
				TargetFaces: fmt.Sprintf("%d", ti),
			})
			if err != nil {
				fmt.Fprintf(out, "  failed: %v\n", err)
				continue
			}
			name := fmt.Sprintf("%s_src%d_tgt%d_%s.jpg",
				results.ImageStem(source), si, ti, variant.Slug())
			path := filepath.Join(outDir, name)
			if err := os.WriteFile(path, res.Image, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "  saved %s\n", path)
		}
	}
	return nil
}
