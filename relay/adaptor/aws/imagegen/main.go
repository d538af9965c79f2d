// Package imagegen builds InvokeModel bodies for Titan Image Generator and Nova Canvas.
package imagegen

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/bedrock-gateway/bedrock-assumerole/common/random"
)

// MaxRandomSeed bounds generated seeds, exclusive.
const MaxRandomSeed = 858993460

// AwsModelIDs lists the image models exposed by the gateway.
var AwsModelIDs = []string{
	"amazon.nova-canvas-v1:0",
	"amazon.titan-image-generator-v2:0",
	"amazon.titan-image-generator-v1",
}

func IsNovaCanvasModel(modelID string) bool {
	return strings.Contains(modelID, "nova-canvas")
}

func IsTitanImageModel(modelID string) bool {
	return strings.Contains(modelID, "titan-image-generator")
}

func IsImageGenerationModel(modelID string) bool {
	return IsNovaCanvasModel(modelID) || IsTitanImageModel(modelID)
}

type taskBuilder struct {
	build func(p Params) (*Request, error)
	// withConfig attaches imageGenerationConfig to the request.
	withConfig bool
}

var builders = map[TaskType]taskBuilder{
	TaskTextImage:         {build: buildTextImage, withConfig: true},
	TaskInpainting:        {build: buildInpainting, withConfig: true},
	TaskOutpainting:       {build: buildOutpainting, withConfig: true},
	TaskImageVariation:    {build: buildImageVariation, withConfig: true},
	TaskBackgroundRemoval: {build: buildBackgroundRemoval},
}

// SupportedTaskTypes lists the task types ConvertRequest accepts.
func SupportedTaskTypes() []TaskType {
	return []TaskType{TaskTextImage, TaskInpainting, TaskOutpainting, TaskImageVariation, TaskBackgroundRemoval}
}

// ConvertRequest builds the request body for p.TaskType.
func ConvertRequest(p Params) (*Request, error) {
	b, ok := builders[p.TaskType]
	if !ok {
		return nil, &UnsupportedTaskTypeError{TaskType: string(p.TaskType)}
	}

	req, err := b.build(p)
	if err != nil {
		return nil, err
	}
	req.TaskType = p.TaskType

	if b.withConfig {
		req.ImageGenerationConfig = generationConfig(p)
	}
	return req, nil
}

func generationConfig(p Params) *GenerationConfig {
	cfg := &GenerationConfig{
		Width:          p.Width,
		Height:         p.Height,
		Quality:        p.Quality,
		NumberOfImages: p.NumberOfImages,
		Seed:           resolveSeed(p.Seed),
	}
	if p.CfgScale != nil && IsTitanImageModel(p.ModelID) && !IsNovaCanvasModel(p.ModelID) {
		scale := *p.CfgScale
		cfg.CfgScale = &scale
	}
	return cfg
}

func resolveSeed(seed int) int {
	if seed > 0 {
		return seed
	}
	return random.RandRange(0, MaxRandomSeed)
}

func negativeText(p Params) string {
	if strings.TrimSpace(p.NegativePrompt) == "" {
		return ""
	}
	return p.NegativePrompt
}

func requireSource(p Params) error {
	if p.SourceImage == "" {
		return &MissingParameterError{TaskType: p.TaskType, Param: "source image"}
	}
	return nil
}

func requirePrompt(p Params) error {
	if strings.TrimSpace(p.Prompt) == "" {
		return &MissingParameterError{TaskType: p.TaskType, Param: "prompt"}
	}
	return nil
}

func buildTextImage(p Params) (*Request, error) {
	if err := requirePrompt(p); err != nil {
		return nil, err
	}
	return &Request{
		TextToImageParams: &TextToImageParams{
			Text:         p.Prompt,
			NegativeText: negativeText(p),
		},
	}, nil
}

func buildInpainting(p Params) (*Request, error) {
	if err := requireSource(p); err != nil {
		return nil, err
	}
	if err := requirePrompt(p); err != nil {
		return nil, err
	}

	params := &InPaintingParams{
		Image:        p.SourceImage,
		Text:         p.Prompt,
		NegativeText: negativeText(p),
	}
	// mask image and mask prompt are mutually exclusive
	if p.MaskImage != "" {
		params.MaskImage = p.MaskImage
	} else {
		params.MaskPrompt = p.MaskPrompt
	}
	return &Request{InPaintingParams: params}, nil
}

func buildOutpainting(p Params) (*Request, error) {
	if err := requireSource(p); err != nil {
		return nil, err
	}
	if err := requirePrompt(p); err != nil {
		return nil, err
	}

	mode := strings.TrimSpace(p.OutpaintingMode)
	if mode == "" {
		mode = OutpaintingDefault
	}
	return &Request{
		OutPaintingParams: &OutPaintingParams{
			Image:           p.SourceImage,
			Text:            p.Prompt,
			NegativeText:    negativeText(p),
			MaskPrompt:      p.MaskPrompt,
			OutPaintingMode: mode,
		},
	}, nil
}

func buildImageVariation(p Params) (*Request, error) {
	if err := requireSource(p); err != nil {
		return nil, err
	}
	if err := requirePrompt(p); err != nil {
		return nil, err
	}
	return &Request{
		ImageVariationParams: &ImageVariationParams{
			Images:             []string{p.SourceImage},
			Text:               p.Prompt,
			SimilarityStrength: p.SimilarityStrength,
		},
	}, nil
}

func buildBackgroundRemoval(p Params) (*Request, error) {
	if err := requireSource(p); err != nil {
		return nil, err
	}
	return &Request{
		BackgroundRemovalParams: &BackgroundRemovalParams{Image: p.SourceImage},
	}, nil
}

// ParseResponse decodes an InvokeModel body and surfaces the model's error field.
func ParseResponse(body []byte) (*Response, error) {
	resp := new(Response)
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Wrap(err, "unmarshal image generation response")
	}
	if resp.Error != "" {
		return resp, errors.Errorf("image generation failed: %s", resp.Error)
	}
	return resp, nil
}
