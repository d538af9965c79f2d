package controller

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/image"
	"github.com/bedrock-gateway/bedrock-assumerole/dto"
	"github.com/bedrock-gateway/bedrock-assumerole/model"
	"github.com/bedrock-gateway/bedrock-assumerole/monitor"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/assumerole"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/claude"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/imagegen"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/profile"
)

// Target is the outcome of credential and model id resolution, shared by every
// item of a request.
type Target struct {
	Settings dto.CredentialSettings
	Base     assumerole.BaseCredentials
	Profiles *profile.Map
}

// ResolveTarget merges overrides onto the environment, checks the base
// credentials and parses the profile map.
func ResolveTarget(overrides *dto.CredentialSettings, sessionName string) (*Target, error) {
	t, err := loadTarget(overrides, sessionName)
	if err != nil {
		return nil, err
	}
	if err = t.Base.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func loadTarget(overrides *dto.CredentialSettings, sessionName string) (*Target, error) {
	settings, err := overrides.Merge(dto.CredentialDefaults(sessionName))
	if err != nil {
		return nil, err
	}
	base, err := settings.Base()
	if err != nil {
		return nil, err
	}
	profiles, err := settings.Profiles()
	if err != nil {
		return nil, err
	}
	return &Target{Settings: settings, Base: base, Profiles: profiles}, nil
}

// PreviewModel reports the id that would be sent to Bedrock for modelID.
// Base credentials are not required.
func PreviewModel(overrides *dto.CredentialSettings, modelID string) (*dto.ResolveResponse, error) {
	t, err := loadTarget(overrides, config.AWSRoleSessionName)
	if err != nil {
		return nil, err
	}

	configured := strings.TrimSpace(modelID)
	effective := t.EffectiveModelID(configured)
	resp := &dto.ResolveResponse{
		ConfiguredModelID: configured,
		ModelID:           effective,
		UsesProfile:       effective != configured,
	}
	if family, err := aws.DetectFamily(configured); err == nil {
		resp.Family = family.String()
	}
	return resp, nil
}

// EffectiveModelID applies the inference profile configuration to modelID.
func (t *Target) EffectiveModelID(modelID string) string {
	return profile.Resolve(profile.Input{
		ModelID:         modelID,
		Region:          t.Base.Region,
		AccountID:       t.Settings.InferenceProfileAccountID,
		LegacyProfileID: t.Settings.InferenceProfileID,
		Profiles:        t.Profiles,
	})
}

// ProcessBatch invokes every item. Results keep item order. Without
// ContinueOnFail the first failure aborts the batch and is returned as *ItemError.
func (s *Service) ProcessBatch(ctx context.Context, requestID string, req *dto.InvokeRequest) (*dto.InvokeResponse, error) {
	requestID = ensureRequestID(requestID)
	lg := gmw.GetLogger(ctx).With(zap.String("request_id", requestID), zap.Int("items", len(req.Items)))

	target, targetErr := ResolveTarget(req.Credentials, config.AWSRoleSessionName)
	if targetErr != nil {
		lg.Warn("failed to resolve credentials", zap.Error(targetErr))
	}

	results := make([]dto.InvokeResult, len(req.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range req.Items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			// an earlier item may have failed while this one waited for a slot
			if err := gctx.Err(); err != nil {
				return err
			}

			var (
				out *dto.InvokeOutput
				err = targetErr
			)
			if err == nil {
				out, err = s.InvokeItem(gctx, requestID, target, i, req.Items[i])
			}

			if err != nil {
				lg.Error("item failed", zap.Int("item_index", i), zap.Error(err))
				if req.ContinueOnFail {
					results[i] = dto.NewItemError(i, err)
					return nil
				}
				return &ItemError{Index: i, Err: err}
			}

			results[i] = dto.InvokeResult{InvokeOutput: out}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &dto.InvokeResponse{Results: results}, nil
}

// InvokeItem runs a single item against the resolved target.
func (s *Service) InvokeItem(ctx context.Context, requestID string, target *Target, index int, item dto.InvokeItem) (*dto.InvokeOutput, error) {
	configured := strings.TrimSpace(item.ModelID)
	effective := target.EffectiveModelID(configured)

	family, err := aws.DetectFamily(configured)
	if err != nil {
		return nil, err
	}

	entry := &model.InvocationLog{
		RequestId:         requestID,
		Endpoint:          model.EndpointInvoke,
		ItemIndex:         index,
		ConfiguredModelId: configured,
		EffectiveModelId:  effective,
		Family:            family.String(),
		Region:            target.Base.Region,
	}

	var body any
	switch family {
	case aws.FamilyClaude:
		body, err = buildClaudeBody(item)
	case aws.FamilyImageGeneration:
		var req *imagegen.Request
		req, err = buildImageBody(configured, item)
		if req != nil {
			entry.TaskType = string(req.TaskType)
		}
		body = req
	}
	if err != nil {
		return nil, err
	}

	gmw.GetLogger(ctx).Debug("invoking model",
		zap.String("configured_model_id", configured),
		zap.String("effective_model_id", effective),
		zap.String("family", family.String()))

	raw, err := s.invoke(ctx, target.Base, effective, body, entry)
	if err != nil {
		return nil, err
	}

	out := &dto.InvokeOutput{
		ModelID:           effective,
		ConfiguredModelID: configured,
		Family:            family.String(),
		Prompt:            item.Prompt,
		Response:          raw,
		TaskType:          entry.TaskType,
		Timestamp:         s.now().UTC().Format(time.RFC3339Nano),
	}

	switch family {
	case aws.FamilyClaude:
		resp, err := claude.ParseResponse(raw)
		if err != nil {
			return nil, err
		}
		out.Usage = resp.Usage
		out.Content = resp.FirstText()
	case aws.FamilyImageGeneration:
		resp, err := imagegen.ParseResponse(raw)
		if err != nil {
			return nil, err
		}
		out.Images = resp.Images
	}
	return out, nil
}

// invoke calls Bedrock, then fills in and records entry.
func (s *Service) invoke(ctx context.Context, base assumerole.BaseCredentials, modelID string, body any, entry *model.InvocationLog) (json.RawMessage, error) {
	start := s.now()
	raw, err := s.bedrock.Invoke(ctx, base, modelID, body)
	elapsed := s.now().Sub(start)

	entry.LatencyMs = elapsed.Milliseconds()
	entry.Success = err == nil
	if err != nil {
		entry.ErrorMessage = err.Error()
	} else if entry.Family == aws.FamilyClaude.String() {
		if resp, perr := claude.ParseResponse(raw); perr == nil {
			entry.StopReason = resp.StopReason
			if resp.Usage != nil {
				entry.InputTokens = resp.Usage.InputTokens
				entry.OutputTokens = resp.Usage.OutputTokens
			}
		}
	} else if _, perr := imagegen.ParseResponse(raw); perr != nil {
		entry.Success = false
		entry.ErrorMessage = perr.Error()
	}

	monitor.RecordInvocation(entry.Family, entry.Success, elapsed)
	monitor.RecordTokens(entry.InputTokens, entry.OutputTokens)
	s.recorder.Record(ctx, entry)
	return raw, err
}

func buildClaudeBody(item dto.InvokeItem) (*claude.Request, error) {
	var binary *claude.BinaryData
	if item.Image != nil {
		payload, declared := image.StripDataURL(item.Image.Data)
		mimeType := strings.TrimSpace(item.Image.MimeType)
		if mimeType == "" {
			mimeType = declared
		}
		if mimeType == "" && payload != "" {
			if info, err := image.Inspect(payload); err == nil {
				mimeType = info.MediaType
			}
		}
		binary = &claude.BinaryData{Data: payload, MimeType: mimeType}
	}

	content, err := claude.BuildMessageContent(item.InputType, item.Prompt, binary)
	if err != nil {
		return nil, err
	}

	maxTokens := item.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}
	temperature := item.Temperature
	if temperature == nil {
		t := config.DefaultTemperature
		temperature = &t
	}
	return claude.NewRequest(content, maxTokens, temperature), nil
}

const defaultImageSize = 1024

func buildImageBody(modelID string, item dto.InvokeItem) (*imagegen.Request, error) {
	opts := item.ImageOptions
	if opts == nil {
		opts = &dto.ImageOptions{}
	}

	taskType := imagegen.TaskType(strings.TrimSpace(opts.TaskType))
	if taskType == "" {
		taskType = imagegen.TaskTextImage
	}

	source, err := inlineImage("source_image", opts.SourceImage)
	if err != nil {
		return nil, err
	}
	mask, err := inlineImage("mask_image", opts.MaskImage)
	if err != nil {
		return nil, err
	}

	width, height := opts.Width, opts.Height
	if width == 0 {
		width = defaultImageSize
	}
	if height == 0 {
		height = defaultImageSize
	}
	quality := opts.Quality
	if quality == "" {
		quality = imagegen.QualityStandard
	}
	count := opts.NumberOfImages
	if count == 0 {
		count = 1
	}

	return imagegen.ConvertRequest(imagegen.Params{
		ModelID:            modelID,
		TaskType:           taskType,
		Prompt:             item.Prompt,
		NegativePrompt:     opts.NegativePrompt,
		SourceImage:        source,
		MaskImage:          mask,
		MaskPrompt:         opts.MaskPrompt,
		OutpaintingMode:    opts.OutpaintingMode,
		SimilarityStrength: opts.SimilarityStrength,
		Width:              width,
		Height:             height,
		Quality:            quality,
		NumberOfImages:     count,
		Seed:               opts.Seed,
		CfgScale:           opts.CfgScale,
	})
}

// inlineImage strips a data URL prefix and checks that the payload decodes as an image.
func inlineImage(field string, in *dto.BinaryInput) (string, error) {
	if in == nil || strings.TrimSpace(in.Data) == "" {
		return "", nil
	}
	payload, _ := image.StripDataURL(in.Data)
	if _, err := image.Inspect(payload); err != nil {
		return "", &InvalidInputError{Field: field, Err: err}
	}
	return payload, nil
}
