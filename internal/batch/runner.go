// Package batch runs face-swap combinations sequentially: one request in
// flight at a time, paced by a rate limiter, resumable from whatever the
// results directory already holds.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lukejeff/swapbench/internal/models"
	"github.com/lukejeff/swapbench/internal/results"
	"github.com/lukejeff/swapbench/internal/segmind"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// progressEvery controls how often the ETA/success-rate block is printed.
const progressEvery = 10

// Runner drives batches and records every attempt.
type Runner struct {
	Store    *results.Store
	Log      *results.CSVLog
	DB       *gorm.DB // optional; nil skips the database log
	Limiter  *rate.Limiter
	Out      io.Writer
	FaceMode string

	// now is swapped in tests to keep timestamps deterministic.
	now func() time.Time
}

// Plan describes one batch invocation.
type Plan struct {
	Sources  []string // image file paths
	Targets  []string
	Swappers []Swapper
	// Limit caps attempts this run; 0 means run everything missing.
	Limit int
	// Resume skips combinations that already have a result image.
	Resume bool
}

// Summary reports how a batch went.
type Summary struct {
	SessionID string
	Planned   int
	Skipped   int
	Attempted int
	Succeeded int
	Failed    int
	Remaining int
	Elapsed   time.Duration
	// TotalGenerationTime sums the provider-reported generation seconds
	// across successful swaps.
	TotalGenerationTime float64
}

// SuccessRate returns the fraction of attempted swaps that succeeded.
func (s *Summary) SuccessRate() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Attempted)
}

// Run executes the plan. Individual failures are logged and skipped; Run
// only returns an error for setup problems or context cancellation.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Summary, error) {
	if len(plan.Swappers) == 0 {
		return nil, fmt.Errorf("batch: at least one swapper is required")
	}
	if len(plan.Sources) == 0 || len(plan.Targets) == 0 {
		return nil, fmt.Errorf("batch: no source or target images found")
	}
	if r.now == nil {
		r.now = time.Now
	}

	variants := make([]string, len(plan.Swappers))
	byVariant := make(map[string]Swapper, len(plan.Swappers))
	for i, sw := range plan.Swappers {
		variants[i] = sw.Variant()
		byVariant[sw.Variant()] = sw
	}

	expected := results.Expected(stems(plan.Sources), stems(plan.Targets), variants)
	todo := expected
	if plan.Resume {
		var err error
		todo, err = r.Store.Missing(expected)
		if err != nil {
			return nil, err
		}
	}

	sum := &Summary{
		SessionID: uuid.NewString(),
		Planned:   len(expected),
		Skipped:   len(expected) - len(todo),
	}
	if plan.Limit > 0 && len(todo) > plan.Limit {
		todo = todo[:plan.Limit]
	}

	batchBase := 0
	if r.Log != nil {
		n, err := r.Log.Rows()
		if err != nil {
			return nil, err
		}
		batchBase = n
	}

	session := &models.RunSession{
		ID:         sum.SessionID,
		Mode:       "batch",
		APIVariant: strings.Join(variants, ","),
		FaceMode:   r.FaceMode,
		Planned:    len(todo),
		Skipped:    sum.Skipped,
		StartedAt:  r.now(),
	}
	if r.DB != nil {
		if err := r.DB.Create(session).Error; err != nil {
			return nil, fmt.Errorf("batch: create session: %w", err)
		}
	}

	fmt.Fprintf(r.Out, "Planned %d combinations (%d already done, running %d)\n",
		sum.Planned, sum.Skipped, len(todo))

	paths := imagePathIndex(plan.Sources, plan.Targets)
	encoded := make(map[string]Image)
	start := r.now()

	for i, combo := range todo {
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		default:
		}

		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return sum, err
			}
		}

		fmt.Fprintf(r.Out, "[%d/%d] %s (%s)\n", i+1, len(todo), combo.Key(), combo.Variant)

		source, err := r.encode(encoded, paths, combo.Source)
		if err != nil {
			return sum, err
		}
		target, err := r.encode(encoded, paths, combo.Target)
		if err != nil {
			return sum, err
		}

		sum.Attempted++
		ok, genTime := r.attempt(ctx, byVariant[combo.Variant], combo, source, target, sum.SessionID, batchBase+sum.Attempted)
		if ok {
			sum.Succeeded++
			fmt.Fprintf(r.Out, "  ok (%ss)\n", orNA(genTime))
			if v, err := strconv.ParseFloat(genTime, 64); err == nil {
				sum.TotalGenerationTime += v
			}
		} else {
			sum.Failed++
			fmt.Fprintln(r.Out, "  failed (logged)")
		}

		if (i+1)%progressEvery == 0 && i+1 < len(todo) {
			r.printProgress(i+1, len(todo), sum, r.now().Sub(start))
		}
	}

	sum.Elapsed = r.now().Sub(start)
	sum.Remaining = sum.Planned - sum.Skipped - sum.Succeeded

	if r.DB != nil {
		finished := r.now()
		session.Completed = sum.Succeeded
		session.Failed = sum.Failed
		session.FinishedAt = &finished
		if err := r.DB.Save(session).Error; err != nil {
			return nil, fmt.Errorf("batch: finalize session: %w", err)
		}
	}
	return sum, nil
}

// attempt runs one swap and persists everything about it. Always logs the
// row, even when the request never made it out.
func (r *Runner) attempt(ctx context.Context, sw Swapper, combo results.Combo, source, target Image, sessionID string, batchNum int) (bool, string) {
	row := &models.SwapRequest{
		RequestID:      fmt.Sprintf("%s_%d_%d", combo.Variant, r.now().UnixMilli(), batchNum),
		SessionID:      sessionID,
		BatchNum:       batchNum,
		SourceImage:    filepath.Base(source.Path),
		TargetImage:    filepath.Base(target.Path),
		ComboKey:       combo.Key(),
		APIVariant:     combo.Variant,
		FaceMode:       r.FaceMode,
		SourceFileKB:   source.FileKB,
		TargetFileKB:   target.FileKB,
		SourceBase64KB: kb(len(source.B64)),
		TargetBase64KB: kb(len(target.B64)),
		CreatedAt:      r.now(),
	}
	row.TotalPayloadMB = round2((row.SourceBase64KB + row.TargetBase64KB) / 1024)
	if ss, ok := sw.(*SegmindSwapper); ok {
		row.SourceFaceIndex, row.TargetFaceIndex = ss.FaceIndexes()
		row.DetectionOrder = "big_to_small"
		row.ModelType = "speed"
		row.SwapType = "face"
		row.HardwareType = "cost"
	}

	row.RequestStart = r.now()
	outcome, err := sw.Swap(ctx, source, target)
	row.RequestEnd = r.now()
	row.DurationSeconds = row.RequestEnd.Sub(row.RequestStart).Seconds()

	if err != nil {
		row.Success = false
		row.ErrorMessage = truncate(err.Error(), 200)
		switch {
		case segmind.IsTimeout(err):
			row.TimedOut = true
			row.ErrorType = "timeout"
		case isAPIError(err, row):
			row.ErrorType = "http_error"
		default:
			row.ErrorType = "request_exception"
		}
		r.logRow(row)
		return false, ""
	}

	row.Success = true
	row.HTTPStatus = outcome.StatusCode
	row.ResponseBytes = int64(len(outcome.Image))
	row.ResponseType = outcome.ContentType
	row.GenerationTime = outcome.GenerationTime
	row.RemainingCredits = outcome.RemainingCredits
	row.APIRequestID = outcome.ProviderRequestID

	md := &results.Metadata{
		Timestamp:        r.now(),
		SourceImage:      filepath.Base(source.Path),
		TargetImage:      filepath.Base(target.Path),
		APIVariant:       combo.Variant,
		TestType:         r.FaceMode + "_face",
		SourceFaces:      row.SourceFaceIndex,
		TargetFaces:      row.TargetFaceIndex,
		GenerationTime:   outcome.GenerationTime,
		RemainingCredits: outcome.RemainingCredits,
		RequestID:        outcome.ProviderRequestID,
		RequestSeconds:   round3(row.DurationSeconds),
		ContentLength:    row.ResponseBytes,
		LogID:            row.RequestID,
	}
	if err := r.Store.SaveResult(combo, outcome.Image, md); err != nil {
		row.Success = false
		row.ErrorType = "save_error"
		row.ErrorMessage = truncate(err.Error(), 200)
		r.logRow(row)
		return false, ""
	}
	row.OutputSaved = true
	r.logRow(row)
	return true, outcome.GenerationTime
}

// logRow appends to the CSV and the database; both are best-effort once a
// request has already happened.
func (r *Runner) logRow(row *models.SwapRequest) {
	if r.Log != nil {
		if err := r.Log.Append(row); err != nil {
			fmt.Fprintf(r.Out, "  warning: CSV log: %v\n", err)
		}
	}
	if r.DB != nil {
		if err := r.DB.Create(row).Error; err != nil {
			fmt.Fprintf(r.Out, "  warning: db log: %v\n", err)
		}
	}
}

func (r *Runner) printProgress(done, total int, sum *Summary, elapsed time.Duration) {
	avg := elapsed / time.Duration(done)
	eta := avg * time.Duration(total-done)
	fmt.Fprintf(r.Out, "Progress: %d/%d (%.1f%%)  ETA: %.1f min  success rate: %.1f%%\n",
		done, total, float64(done)/float64(total)*100,
		eta.Minutes(), sum.SuccessRate()*100)
}

// encode base64-encodes an image once per run and caches it by stem.
func (r *Runner) encode(cache map[string]Image, paths map[string]string, stem string) (Image, error) {
	if img, ok := cache[stem]; ok {
		return img, nil
	}
	path, ok := paths[stem]
	if !ok {
		return Image{}, fmt.Errorf("batch: no image file for %q", stem)
	}
	b64, size, err := results.EncodeImageBase64(path)
	if err != nil {
		return Image{}, err
	}
	img := Image{Path: path, Stem: stem, B64: b64, FileKB: kb(int(size))}
	cache[stem] = img
	return img, nil
}

func imagePathIndex(lists ...[]string) map[string]string {
	idx := make(map[string]string)
	for _, list := range lists {
		for _, path := range list {
			idx[results.ImageStem(path)] = path
		}
	}
	return idx
}

func stems(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = results.ImageStem(p)
	}
	return out
}

func isAPIError(err error, row *models.SwapRequest) bool {
	var apiErr *segmind.APIError
	if errors.As(err, &apiErr) {
		row.HTTPStatus = apiErr.StatusCode
		return true
	}
	return false
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func kb(n int) float64 { return round2(float64(n) / 1024) }

func round2(f float64) float64 { return float64(int(f*100+0.5)) / 100 }
func round3(f float64) float64 { return float64(int(f*1000+0.5)) / 1000 }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
