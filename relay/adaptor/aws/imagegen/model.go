package imagegen

import (
	"fmt"
)

type TaskType string

const (
	TaskTextImage         TaskType = "TEXT_IMAGE"
	TaskInpainting        TaskType = "INPAINTING"
	TaskOutpainting       TaskType = "OUTPAINTING"
	TaskImageVariation    TaskType = "IMAGE_VARIATION"
	TaskBackgroundRemoval TaskType = "BACKGROUND_REMOVAL"
)

const (
	QualityStandard = "standard"
	QualityPremium  = "premium"

	OutpaintingDefault = "DEFAULT"
	OutpaintingPrecise = "PRECISE"
)

// Params is the caller-facing description of an image task.
type Params struct {
	ModelID        string
	TaskType       TaskType
	Prompt         string
	NegativePrompt string
	// SourceImage and MaskImage are base64 payloads without data URL prefix.
	SourceImage        string
	MaskImage          string
	MaskPrompt         string
	OutpaintingMode    string
	SimilarityStrength *float64
	Width              int
	Height             int
	Quality            string
	NumberOfImages     int
	// Seed is used verbatim when positive, otherwise a random seed is drawn.
	Seed     int
	CfgScale *float64
}

// Request is the InvokeModel body shared by Titan Image and Nova Canvas models.
type Request struct {
	TaskType                TaskType                 `json:"taskType"`
	TextToImageParams       *TextToImageParams       `json:"textToImageParams,omitempty"`
	InPaintingParams        *InPaintingParams        `json:"inPaintingParams,omitempty"`
	OutPaintingParams       *OutPaintingParams       `json:"outPaintingParams,omitempty"`
	ImageVariationParams    *ImageVariationParams    `json:"imageVariationParams,omitempty"`
	BackgroundRemovalParams *BackgroundRemovalParams `json:"backgroundRemovalParams,omitempty"`
	ImageGenerationConfig   *GenerationConfig        `json:"imageGenerationConfig,omitempty"`
}

type TextToImageParams struct {
	Text         string `json:"text"`
	NegativeText string `json:"negativeText,omitempty"`
}

type InPaintingParams struct {
	Image        string `json:"image"`
	Text         string `json:"text"`
	NegativeText string `json:"negativeText,omitempty"`
	MaskPrompt   string `json:"maskPrompt,omitempty"`
	MaskImage    string `json:"maskImage,omitempty"`
}

type OutPaintingParams struct {
	Image           string `json:"image"`
	Text            string `json:"text"`
	NegativeText    string `json:"negativeText,omitempty"`
	MaskPrompt      string `json:"maskPrompt,omitempty"`
	OutPaintingMode string `json:"outPaintingMode"`
}

type ImageVariationParams struct {
	Images             []string `json:"images"`
	Text               string   `json:"text"`
	SimilarityStrength *float64 `json:"similarityStrength,omitempty"`
}

type BackgroundRemovalParams struct {
	Image string `json:"image"`
}

type GenerationConfig struct {
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Quality        string   `json:"quality"`
	NumberOfImages int      `json:"numberOfImages"`
	Seed           int      `json:"seed"`
	CfgScale       *float64 `json:"cfgScale,omitempty"`
}

// Response is either a list of base64 images or an error message.
type Response struct {
	Images []string `json:"images"`
	Error  string   `json:"error,omitempty"`
}

// UnsupportedTaskTypeError is returned for task types outside the five known kinds.
type UnsupportedTaskTypeError struct {
	TaskType string
}

func (e *UnsupportedTaskTypeError) Error() string {
	return fmt.Sprintf("Unsupported image task type: %s", e.TaskType)
}

// MissingParameterError names a required parameter that was left empty.
type MissingParameterError struct {
	TaskType TaskType
	Param    string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s requires %s", e.TaskType, e.Param)
}
