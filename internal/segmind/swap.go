package segmind

import (
	"context"
	"fmt"
	"strconv"
)

// Variant identifies one of the face-swap API generations under test.
type Variant string

const (
	VariantV2  Variant = "v2"
	VariantV4  Variant = "v4"
	VariantV43 Variant = "v4.3"
)

// Endpoint returns the API path segment for the variant.
func (v Variant) Endpoint() string {
	switch v {
	case VariantV2:
		return "faceswap-v2"
	case VariantV4:
		return "faceswap-v4"
	case VariantV43:
		return "faceswap-v4.3"
	}
	return ""
}

// Slug returns the filename-safe form of the variant, used in result names
// like source_01_to_target_05_v43_result.jpg.
func (v Variant) Slug() string {
	switch v {
	case VariantV43:
		return "v43"
	default:
		return string(v)
	}
}

// ParseVariant maps a config/CLI string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "v2":
		return VariantV2, nil
	case "v4":
		return VariantV4, nil
	case "v4.3", "v43":
		return VariantV43, nil
	}
	return "", fmt.Errorf("segmind: unknown API variant %q", s)
}

// SwapRequest describes one face swap. Images are base64-encoded file
// contents. Face indexes are comma-separated lists ("0" for single face,
// "0,1,2,3" for all four) matching the provider's convention.
type SwapRequest struct {
	SourceB64   string
	TargetB64   string
	SourceFaces string
	TargetFaces string
}

// Fixed parameter values carried on every request, matching the settings
// the batches were tuned with.
const (
	faceRestoreModel   = "codeformer-v0.1.0.pth"
	detectionFaceOrder = "big_to_small"
	modelTypeSpeed     = "speed"
	swapTypeFace       = "face"
	hardwareTypeCost   = "cost"
	styleTypeNormal    = "normal"
)

// v2 keeps the original field naming: the target is "input".
type swapV2Payload struct {
	SourceImg        string `json:"source_img"`
	TargetImg        string `json:"target_img"`
	InputFacesIndex  string `json:"input_faces_index"`
	SourceFacesIndex string `json:"source_faces_index"`
	FaceRestore      string `json:"face_restore"`
	Base64           bool   `json:"base64"`
}

// v4 takes integer indexes and only swaps one face per call.
type swapV4Payload struct {
	SourceImage        string `json:"source_image"`
	TargetImage        string `json:"target_image"`
	SourceFaceIndex    int    `json:"source_face_index"`
	TargetFaceIndex    int    `json:"target_face_index"`
	DetectionFaceOrder string `json:"detection_face_order"`
	ModelType          string `json:"model_type"`
	SwapType           string `json:"swap_type"`
	HardwareType       string `json:"hardware_type"`
}

// v4.3 returns to comma-separated indexes and adds a style knob.
type swapV43Payload struct {
	SourceImage        string `json:"source_image"`
	TargetImage        string `json:"target_image"`
	SourceFaceIndex    string `json:"source_face_index"`
	TargetFaceIndex    string `json:"target_face_index"`
	DetectionFaceOrder string `json:"detection_face_order"`
	ModelType          string `json:"model_type"`
	SwapType           string `json:"swap_type"`
	StyleType          string `json:"style_type"`
	Base64             bool   `json:"base64"`
}

// Swap performs one face swap against the given API variant and returns the
// result image bytes plus provider metadata.
func (c *Client) Swap(ctx context.Context, v Variant, req SwapRequest) (*Result, error) {
	payload, err := buildSwapPayload(v, req)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, v.Endpoint(), payload)
}

func buildSwapPayload(v Variant, req SwapRequest) (any, error) {
	switch v {
	case VariantV2:
		return swapV2Payload{
			SourceImg:        req.SourceB64,
			TargetImg:        req.TargetB64,
			InputFacesIndex:  req.TargetFaces,
			SourceFacesIndex: req.SourceFaces,
			FaceRestore:      faceRestoreModel,
			Base64:           false,
		}, nil
	case VariantV4:
		srcIdx, err := strconv.Atoi(req.SourceFaces)
		if err != nil {
			return nil, fmt.Errorf("segmind: v4 needs a single source face index, got %q", req.SourceFaces)
		}
		tgtIdx, err := strconv.Atoi(req.TargetFaces)
		if err != nil {
			return nil, fmt.Errorf("segmind: v4 needs a single target face index, got %q", req.TargetFaces)
		}
		return swapV4Payload{
			SourceImage:        req.SourceB64,
			TargetImage:        req.TargetB64,
			SourceFaceIndex:    srcIdx,
			TargetFaceIndex:    tgtIdx,
			DetectionFaceOrder: detectionFaceOrder,
			ModelType:          modelTypeSpeed,
			SwapType:           swapTypeFace,
			HardwareType:       hardwareTypeCost,
		}, nil
	case VariantV43:
		return swapV43Payload{
			SourceImage:        req.SourceB64,
			TargetImage:        req.TargetB64,
			SourceFaceIndex:    req.SourceFaces,
			TargetFaceIndex:    req.TargetFaces,
			DetectionFaceOrder: detectionFaceOrder,
			ModelType:          modelTypeSpeed,
			SwapType:           swapTypeFace,
			StyleType:          styleTypeNormal,
			Base64:             false,
		}, nil
	}
	return nil, fmt.Errorf("segmind: unknown API variant %q", v)
}
