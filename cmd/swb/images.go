package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/thortful"
	"github.com/spf13/cobra"
)

func newImagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Prepare source and target images",
	}

	cmd.AddCommand(newImagesGenerateCmd())
	cmd.AddCommand(newImagesTargetsCmd())
	return cmd
}

func newImagesGenerateCmd() *cobra.Command {
	var (
		configPath string
		prompts    []string
		outDir     string
		prefix     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate test portraits with SDXL text-to-image",
		Long:  "Sends each prompt to the Segmind SDXL endpoint and saves the generated portrait into the source image directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImagesGenerate(cmd, configPath, prompts, outDir, prefix)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	cmd.Flags().StringArrayVarP(&prompts, "prompt", "p", nil, "text prompt (repeatable)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default source_dir from config)")
	cmd.Flags().StringVar(&prefix, "prefix", "generated", "filename prefix for saved images")
	cmd.MarkFlagRequired("prompt")
	return cmd
}

func runImagesGenerate(cmd *cobra.Command, configPath string, prompts []string, outDir, prefix string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if outDir == "" {
		outDir = cfg.SourceDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	client, err := segmindClient(cfg, config.LoadEnv())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for i, prompt := range prompts {
		fmt.Fprintf(out, "[%d/%d] generating %q\n", i+1, len(prompts), prompt)
		res, err := client.TextToImage(ctx, prompt)
		if err != nil {
			return fmt.Errorf("generate %q: %w", prompt, err)
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s_%02d.jpg", prefix, i+1))
		if err := os.WriteFile(path, res.Image, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "  saved %s (%ss generation)\n", path, res.GenerationTime)
	}
	return nil
}

func newImagesTargetsCmd() *cobra.Command {
	var (
		configPath string
		ranking    string
		top        int
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Download the top-ranked Thortful cards as target images",
		Long: "Reads a card ranking CSV, picks the most-swapped products and downloads " +
			"their artwork from the Thortful CDN into the target image directory. " +
			"Filenames keep the product id so thortful runs can recover it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImagesTargets(cmd, configPath, ranking, top, outDir)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to swapbench config file")
	cmd.Flags().StringVar(&ranking, "ranking", "", "path to the card ranking CSV")
	cmd.Flags().IntVar(&top, "top", 5, "how many cards to download")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default target_dir from config)")
	cmd.MarkFlagRequired("ranking")
	return cmd
}

func runImagesTargets(cmd *cobra.Command, configPath, ranking string, top int, outDir string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if outDir == "" {
		outDir = cfg.TargetDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	cards, err := thortful.LoadRankingCSV(ranking)
	if err != nil {
		return err
	}
	if top > 0 && len(cards) > top {
		cards = cards[:top]
	}
	if len(cards) == 0 {
		return fmt.Errorf("no cards found in %s", ranking)
	}

	// Downloads only need the CDN, not API credentials.
	client, err := thortful.New(thortful.ClientOpts{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for i, card := range cards {
		path := filepath.Join(outDir, fmt.Sprintf("target_%02d_%s.jpg", card.Rank, card.ProductID))
		fmt.Fprintf(out, "[%d/%d] %s (%d swaps)\n", i+1, len(cards), card.ProductID, card.SwapCount)
		if err := client.DownloadCard(ctx, card.ProductID, path); err != nil {
			return err
		}
		fmt.Fprintf(out, "  saved %s\n", path)
	}
	return nil
}
