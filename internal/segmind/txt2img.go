package segmind

import "context"

// sdxlEndpoint generates the synthetic source and target images the batches
// are run against.
const sdxlEndpoint = "sdxl1.0-txt2img"

// Generation settings the test images were produced with.
const (
	sdxlWidth          = 1024
	sdxlHeight         = 768
	sdxlInferenceSteps = 30
	sdxlGuidanceScale  = 7.5
	sdxlNegativePrompt = "blurry, low quality, distorted faces, cartoon, anime, drawing, sketch, watermark, text, logo"
)

type txt2imgPayload struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Seed              int     `json:"seed"`
	Base64            bool    `json:"base64"`
}

// TextToImage renders a prompt with SDXL and returns the image bytes.
// Seed is -1 (random) so repeated runs produce varied faces.
func (c *Client) TextToImage(ctx context.Context, prompt string) (*Result, error) {
	return c.post(ctx, sdxlEndpoint, txt2imgPayload{
		Prompt:            prompt,
		NegativePrompt:    sdxlNegativePrompt,
		Width:             sdxlWidth,
		Height:            sdxlHeight,
		NumInferenceSteps: sdxlInferenceSteps,
		GuidanceScale:     sdxlGuidanceScale,
		Seed:              -1,
		Base64:            false,
	})
}
