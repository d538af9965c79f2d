package dto

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/assumerole"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/claude"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/profile"
)

// CredentialSettings are the per-request overrides of the environment
// credentials and inference profile configuration. Empty fields fall back to
// the environment.
type CredentialSettings struct {
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	RoleArn         string `json:"role_arn,omitempty" validate:"omitempty,startswith=arn:"`
	Region          string `json:"region,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty" validate:"omitempty,min=900,max=43200"`
	SessionName     string `json:"session_name,omitempty" validate:"omitempty,max=64"`

	InferenceProfileAccountID string `json:"inference_profile_account_id,omitempty"`
	InferenceProfileID        string `json:"inference_profile_id,omitempty"`
	InferenceProfilesJSON     string `json:"inference_profiles_json,omitempty"`
}

// CredentialDefaults reads the environment configuration. sessionName is the
// RoleSessionName used when neither the request nor the environment set one.
func CredentialDefaults(sessionName string) CredentialSettings {
	return CredentialSettings{
		AccessKeyID:               config.AWSAccessKeyID,
		SecretAccessKey:           config.AWSSecretAccessKey,
		RoleArn:                   config.AWSRoleArn,
		Region:                    config.AWSRegion,
		DurationSeconds:           config.AWSRoleDurationSeconds,
		SessionName:               sessionName,
		InferenceProfileAccountID: config.InferenceProfileAccountID,
		InferenceProfileID:        config.InferenceProfileID,
		InferenceProfilesJSON:     config.InferenceProfilesJSON,
	}
}

// Merge overlays the non-empty fields of s on defaults. s may be nil.
func (s *CredentialSettings) Merge(defaults CredentialSettings) (CredentialSettings, error) {
	merged := defaults
	if s == nil {
		return merged, nil
	}
	if err := copier.CopyWithOption(&merged, s, copier.Option{IgnoreEmpty: true}); err != nil {
		return CredentialSettings{}, errors.Wrap(err, "merge credential settings")
	}
	return merged, nil
}

// Base returns the assume-role inputs, trimmed and with defaults applied.
func (s CredentialSettings) Base() (assumerole.BaseCredentials, error) {
	return assumerole.ResolveBase(assumerole.BaseCredentials{
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		RoleArn:         s.RoleArn,
		Region:          s.Region,
		DurationSeconds: s.DurationSeconds,
		SessionName:     s.SessionName,
	}, assumerole.BaseCredentials{})
}

// Profiles parses InferenceProfilesJSON.
func (s CredentialSettings) Profiles() (*profile.Map, error) {
	return profile.BuildFromJSON(s.InferenceProfilesJSON)
}

// BinaryInput is an inline base64 payload, optionally given as a data URL.
type BinaryInput struct {
	Data     string `json:"data" validate:"required"`
	MimeType string `json:"mime_type,omitempty"`
}

// ImageOptions configures image generation models.
type ImageOptions struct {
	// TaskType is checked by the request builder so unknown values surface verbatim.
	TaskType           string       `json:"task_type"`
	NegativePrompt     string       `json:"negative_prompt,omitempty"`
	SourceImage        *BinaryInput `json:"source_image,omitempty"`
	MaskImage          *BinaryInput `json:"mask_image,omitempty"`
	MaskPrompt         string       `json:"mask_prompt,omitempty"`
	OutpaintingMode    string       `json:"outpainting_mode,omitempty" validate:"omitempty,oneof=DEFAULT PRECISE"`
	SimilarityStrength *float64     `json:"similarity_strength,omitempty" validate:"omitempty,min=0.2,max=1"`
	Width              int          `json:"width,omitempty" validate:"omitempty,min=256,max=4096"`
	Height             int          `json:"height,omitempty" validate:"omitempty,min=256,max=4096"`
	Quality            string       `json:"quality,omitempty" validate:"omitempty,oneof=standard premium"`
	NumberOfImages     int          `json:"number_of_images,omitempty" validate:"omitempty,min=1,max=5"`
	// Seed <= 0 asks for a random seed. CfgScale is passed through unchecked.
	Seed               int          `json:"seed,omitempty"`
	CfgScale           *float64     `json:"cfg_scale,omitempty"`
}

// InvokeItem is one unit of work of an invoke batch.
type InvokeItem struct {
	ModelID      string        `json:"model_id" validate:"required"`
	Prompt       string        `json:"prompt"`
	InputType    string        `json:"input_type,omitempty" validate:"omitempty,oneof=text image"`
	Image        *BinaryInput  `json:"image,omitempty"`
	MaxTokens    int           `json:"max_tokens,omitempty" validate:"omitempty,min=1"`
	Temperature  *float64      `json:"temperature,omitempty" validate:"omitempty,min=0,max=1"`
	ImageOptions *ImageOptions `json:"image_options,omitempty"`
}

// InvokeRequest is the body of POST /api/bedrock/invoke.
type InvokeRequest struct {
	Credentials    *CredentialSettings `json:"credentials,omitempty"`
	Items          []InvokeItem        `json:"items" validate:"required,min=1,dive"`
	ContinueOnFail bool                `json:"continue_on_fail"`
}

// InvokeOutput is the result of a successful item.
type InvokeOutput struct {
	ModelID           string          `json:"modelId"`
	ConfiguredModelID string          `json:"configuredModelId"`
	Family            string          `json:"family"`
	Prompt            string          `json:"prompt"`
	Response          json.RawMessage `json:"response"`
	Usage             *claude.Usage   `json:"usage,omitempty"`
	Content           string          `json:"content"`
	Images            []string        `json:"images,omitempty"`
	TaskType          string          `json:"taskType,omitempty"`
	Timestamp         string          `json:"timestamp"`
}

// InvokeResult is either an output or, with continue_on_fail, an error for the item.
type InvokeResult struct {
	*InvokeOutput
	Error     string `json:"error,omitempty"`
	ItemIndex *int   `json:"itemIndex,omitempty"`
}

// NewItemError builds the result recorded for a failed item.
func NewItemError(index int, err error) InvokeResult {
	return InvokeResult{Error: err.Error(), ItemIndex: &index}
}

type InvokeResponse struct {
	Results []InvokeResult `json:"results"`
}

// ChatRequest is the body of POST /api/bedrock/chat.
type ChatRequest struct {
	Credentials *CredentialSettings     `json:"credentials,omitempty"`
	ModelID     string                  `json:"model_id" validate:"required"`
	Messages    []claude.ChatMessage    `json:"messages" validate:"required,min=1"`
	Tools       []claude.ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int                     `json:"max_tokens,omitempty" validate:"omitempty,min=1"`
	Temperature *float64                `json:"temperature,omitempty" validate:"omitempty,min=0,max=1"`
}

type ChatResponse struct {
	ModelID           string            `json:"modelId"`
	ConfiguredModelID string            `json:"configuredModelId"`
	Text              string            `json:"text"`
	ToolCalls         []claude.ToolCall `json:"tool_calls,omitempty"`
	Usage             *claude.Usage     `json:"usage,omitempty"`
	StopReason        string            `json:"stop_reason,omitempty"`
}

// ResolveResponse previews the id that would be sent to Bedrock.
type ResolveResponse struct {
	ConfiguredModelID string `json:"configuredModelId"`
	ModelID           string `json:"modelId"`
	Family            string `json:"family,omitempty"`
	UsesProfile       bool   `json:"usesProfile"`
}

// CredentialTestRequest is the body of POST /api/bedrock/credentials/test.
type CredentialTestRequest struct {
	Credentials *CredentialSettings `json:"credentials,omitempty"`
}

type CredentialTestResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	AccessKeyPrefix string `json:"access_key_prefix,omitempty"`
	Expiration      string `json:"expiration,omitempty"`
}
