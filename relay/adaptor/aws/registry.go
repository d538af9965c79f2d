package aws

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/imagegen"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/profile"
)

type ModelFamily int

const (
	FamilyUnknown ModelFamily = iota
	FamilyClaude
	FamilyImageGeneration
)

func (f ModelFamily) String() string {
	switch f {
	case FamilyClaude:
		return "claude"
	case FamilyImageGeneration:
		return "image_generation"
	default:
		return "unknown"
	}
}

// UnsupportedModelError is returned for models that are neither Claude nor an image generation model.
type UnsupportedModelError struct {
	ModelID string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("Unsupported model: %s", e.ModelID)
}

var awsArnMatch *regexp.Regexp

func init() {
	match, err := regexp.Compile("arn:aws:bedrock.+claude")
	if err != nil {
		logger.Logger.Warn(fmt.Sprintf("compile %v", err))
		return
	}
	awsArnMatch = match
}

// IsClaudeModel accepts inference profile ids (us.anthropic.claude-...), direct ids
// (anthropic.claude-...) and foundation model ARNs naming a Claude model.
func IsClaudeModel(modelID string) bool {
	if strings.Contains(modelID, "anthropic.claude") {
		return true
	}
	return awsArnMatch != nil && awsArnMatch.MatchString(modelID)
}

// DetectFamily classifies the configured model id. Application inference
// profile ARNs carry no family information, so callers pass the configured id.
func DetectFamily(modelID string) (ModelFamily, error) {
	switch {
	case IsClaudeModel(modelID):
		return FamilyClaude, nil
	case imagegen.IsImageGenerationModel(modelID):
		return FamilyImageGeneration, nil
	default:
		return FamilyUnknown, &UnsupportedModelError{ModelID: modelID}
	}
}

// ModelOption is a selectable model with a display label.
type ModelOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DefaultClaudeModel is preselected by clients.
const DefaultClaudeModel = "us.anthropic.claude-3-5-sonnet-20241022-v2:0"

var ClaudeModelOptions = []ModelOption{
	{Name: "Claude 3.5 Sonnet v2", Value: DefaultClaudeModel},
	{Name: "Claude 3.5 Sonnet v1", Value: "us.anthropic.claude-3-5-sonnet-20240620-v1:0"},
	{Name: "Claude 3.5 Haiku", Value: "us.anthropic.claude-3-5-haiku-20241022-v1:0"},
	{Name: "Claude 3.7 Sonnet", Value: "us.anthropic.claude-3-7-sonnet-20250219-v1:0"},
	{Name: "Claude Sonnet 4", Value: "us.anthropic.claude-sonnet-4-20250514-v1:0"},
	{Name: "Claude Sonnet 4.5", Value: "us.anthropic.claude-sonnet-4-5-20250929-v1:0"},
	{Name: "Claude Haiku 4.5", Value: "us.anthropic.claude-haiku-4-5-20251001-v1:0"},
	{Name: "Claude Opus 4", Value: "us.anthropic.claude-opus-4-20250514-v1:0"},
	{Name: "Claude Opus 4.1", Value: "us.anthropic.claude-opus-4-1-20250805-v1:0"},
}

var ImageModelOptions = []ModelOption{
	{Name: "Amazon Nova Canvas", Value: "amazon.nova-canvas-v1:0"},
	{Name: "Amazon Titan Image Generator v2", Value: "amazon.titan-image-generator-v2:0"},
	{Name: "Amazon Titan Image Generator v1", Value: "amazon.titan-image-generator-v1"},
}

// StaticModelOptions returns the built-in catalogue, Claude models first.
func StaticModelOptions() []ModelOption {
	out := make([]ModelOption, 0, len(ClaudeModelOptions)+len(ImageModelOptions))
	out = append(out, ClaudeModelOptions...)
	return append(out, ImageModelOptions...)
}

// ModelOptions lists the models mapped in profiles, labelled from the static
// catalogue. Without a usable mapping the static catalogue is returned.
func ModelOptions(profiles *profile.Map) []ModelOption {
	static := StaticModelOptions()
	if profiles.Len() == 0 {
		return static
	}

	labels := make(map[string]string, len(static))
	for _, opt := range static {
		labels[opt.Value] = opt.Name
	}

	seen := map[string]bool{}
	var options []ModelOption
	for _, id := range profiles.ModelIDs() {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		name := labels[id]
		if name == "" {
			name = id
		}
		options = append(options, ModelOption{Name: name, Value: id})
	}

	if len(options) == 0 {
		return static
	}
	return options
}

// ModelOptionsFromJSON parses the mapping document first; malformed JSON is reported.
func ModelOptionsFromJSON(jsonText string) ([]ModelOption, error) {
	profiles, err := profile.BuildFromJSON(jsonText)
	if err != nil {
		return nil, err
	}
	return ModelOptions(profiles), nil
}
