package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lukejeff/swapbench/internal/segmind"
	"github.com/lukejeff/swapbench/internal/thortful"
)

// Image is one encoded input image, ready to send.
type Image struct {
	Path   string
	Stem   string
	B64    string
	FileKB float64
}

// Outcome is what a provider returned for one successful swap.
type Outcome struct {
	Image             []byte
	StatusCode        int
	ContentType       string
	GenerationTime    string
	RemainingCredits  string
	ProviderRequestID string
	Duration          time.Duration
}

// Swapper performs one face swap against a specific provider/variant.
type Swapper interface {
	// Variant returns the filename-safe slug used in result names.
	Variant() string
	Swap(ctx context.Context, source, target Image) (*Outcome, error)
}

// Face index lists sent per face mode. Multi-face swaps all four expected
// faces in one call; single-face swaps the most prominent one.
const (
	singleFaceIndexes = "0"
	multiFaceIndexes  = "0,1,2,3"
)

// SegmindSwapper adapts a segmind.Client to the Swapper interface with a
// fixed variant and face mode.
type SegmindSwapper struct {
	client      *segmind.Client
	variant     segmind.Variant
	sourceFaces string
	targetFaces string
	singleFace  bool
}

// NewSegmindSwapper builds a swapper for one API variant. The v4 endpoint
// only accepts a single face index, so multi mode is rejected there.
func NewSegmindSwapper(c *segmind.Client, v segmind.Variant, faceMode string) (*SegmindSwapper, error) {
	s := &SegmindSwapper{client: c, variant: v}
	switch faceMode {
	case "single":
		s.sourceFaces = singleFaceIndexes
		s.targetFaces = singleFaceIndexes
		s.singleFace = true
	case "multi":
		if v == segmind.VariantV4 {
			return nil, fmt.Errorf("batch: faceswap-v4 is single-face only; use v4.3 for multi-face runs")
		}
		s.sourceFaces = multiFaceIndexes
		s.targetFaces = multiFaceIndexes
	default:
		return nil, fmt.Errorf("batch: unknown face mode %q", faceMode)
	}
	return s, nil
}

func (s *SegmindSwapper) Variant() string { return s.variant.Slug() }

// FaceIndexes returns the (source, target) index lists the swapper sends.
func (s *SegmindSwapper) FaceIndexes() (string, string) { return s.sourceFaces, s.targetFaces }

func (s *SegmindSwapper) Swap(ctx context.Context, source, target Image) (*Outcome, error) {
	res, err := s.client.Swap(ctx, s.variant, segmind.SwapRequest{
		SourceB64:   source.B64,
		TargetB64:   target.B64,
		SourceFaces: s.sourceFaces,
		TargetFaces: s.targetFaces,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Image:             res.Image,
		StatusCode:        res.StatusCode,
		ContentType:       res.ContentType,
		GenerationTime:    res.GenerationTime,
		RemainingCredits:  res.RemainingCredits,
		ProviderRequestID: res.RequestID,
		Duration:          res.Duration,
	}, nil
}

// ThortfulSwapper adapts a thortful.Client. The "target image" is a card
// downloaded by `swb images targets`; its product id is recovered from the
// filename.
type ThortfulSwapper struct {
	client *thortful.Client
	auth   *thortful.AuthHeaders
}

// NewThortfulSwapper builds a swapper using previously obtained auth headers.
func NewThortfulSwapper(c *thortful.Client, auth *thortful.AuthHeaders) (*ThortfulSwapper, error) {
	if auth == nil || auth.UserToken == "" {
		return nil, fmt.Errorf("batch: thortful auth headers are required (run `swb thortful login` first)")
	}
	return &ThortfulSwapper{client: c, auth: auth}, nil
}

func (s *ThortfulSwapper) Variant() string { return "thortful" }

func (s *ThortfulSwapper) Swap(ctx context.Context, source, target Image) (*Outcome, error) {
	cardID, err := CardIDFromStem(target.Stem)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Swap(ctx, s.auth, source.B64, cardID)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Image:          res.Image,
		StatusCode:     200,
		ContentType:    "image/jpeg",
		GenerationTime: res.GenerationTime,
		Duration:       res.Duration,
	}, nil
}

// cardIDLen matches thortful product ids (Mongo ObjectIds).
const cardIDLen = 24

// CardIDFromStem extracts the card product id from a downloaded target
// filename stem like target_01_67816ae75990fc276575cd07.
func CardIDFromStem(stem string) (string, error) {
	parts := strings.Split(stem, "_")
	last := parts[len(parts)-1]
	if len(last) != cardIDLen {
		return "", fmt.Errorf("batch: target %q does not end in a card product id", stem)
	}
	return last, nil
}
