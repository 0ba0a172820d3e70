package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/lukejeff/swapbench/internal/batch"
	"github.com/lukejeff/swapbench/internal/config"
	"github.com/lukejeff/swapbench/internal/db"
	"github.com/lukejeff/swapbench/internal/results"
	"github.com/lukejeff/swapbench/internal/segmind"
	"github.com/lukejeff/swapbench/internal/thortful"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const defaultConfigPath = "swapbench.yaml"

// csvLogName is the request log file, kept next to the results dir so it is
// never published with the images.
const csvLogName = "swap_requests.csv"

// authCacheName stores Thortful auth headers from `swb thortful login`.
const authCacheName = "thortful_auth.json"

func csvLogPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.ResultsDir), csvLogName)
}

func authCachePath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.ResultsDir), authCacheName)
}

func openStore(cfg *config.Config) (*results.Store, error) {
	return results.NewStore(cfg.ResultsDir)
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	return gormDB, nil
}

func newLimiter(cfg *config.Config) *rate.Limiter {
	rpm := cfg.Rate.RequestsPerMinute
	if rpm <= 0 {
		return nil
	}
	burst := cfg.Rate.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60), burst)
}

func segmindClient(cfg *config.Config, creds *config.Credentials) (*segmind.Client, error) {
	key, err := creds.RequireSegmind()
	if err != nil {
		return nil, err
	}
	return segmind.New(segmind.ClientOpts{
		APIKey:  key,
		Timeout: time.Duration(cfg.Rate.TimeoutSec) * time.Second,
		Retries: cfg.Retry.MaxAttempts,
		Backoff: time.Duration(cfg.Retry.BackoffSec) * time.Second,
	})
}

// buildSwappers turns the configured API variant names into swappers.
func buildSwappers(cfg *config.Config, creds *config.Credentials, apis []string) ([]batch.Swapper, error) {
	var swappers []batch.Swapper
	for _, name := range apis {
		if name == "thortful" {
			sw, err := thortfulSwapper(cfg, creds)
			if err != nil {
				return nil, err
			}
			swappers = append(swappers, sw)
			continue
		}
		variant, err := segmind.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		client, err := segmindClient(cfg, creds)
		if err != nil {
			return nil, err
		}
		sw, err := batch.NewSegmindSwapper(client, variant, cfg.FaceMode)
		if err != nil {
			return nil, err
		}
		swappers = append(swappers, sw)
	}
	return swappers, nil
}

func thortfulSwapper(cfg *config.Config, creds *config.Credentials) (batch.Swapper, error) {
	if creds.ThortfulKey == "" || creds.ThortfulSecret == "" {
		return nil, fmt.Errorf("%s and %s must be set for thortful runs",
			config.EnvThortfulKey, config.EnvThortfulSecret)
	}
	client, err := thortful.New(thortful.ClientOpts{
		APIKey:    creds.ThortfulKey,
		APISecret: creds.ThortfulSecret,
	})
	if err != nil {
		return nil, err
	}
	auth, err := thortful.LoadAuth(authCachePath(cfg))
	if err != nil {
		return nil, err
	}
	return batch.NewThortfulSwapper(client, auth)
}

// variantSlugs maps config/CLI API names to the filename slugs used in
// result names ("v4.3" is stored as "v43").
func variantSlugs(apis []string) []string {
	slugs := make([]string, len(apis))
	for i, name := range apis {
		if v, err := segmind.ParseVariant(name); err == nil {
			slugs[i] = v.Slug()
		} else {
			slugs[i] = name
		}
	}
	return slugs
}

// loadImages lists the source and target image paths the batch will pair up.
func loadImages(cfg *config.Config) (sources, targets []string, err error) {
	sources, err = results.ListImages(cfg.SourceDir)
	if err != nil {
		return nil, nil, fmt.Errorf("list sources: %w", err)
	}
	targets, err = results.ListImages(cfg.TargetDir)
	if err != nil {
		return nil, nil, fmt.Errorf("list targets: %w", err)
	}
	return sources, targets, nil
}
