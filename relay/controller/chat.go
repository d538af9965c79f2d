package controller

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/dto"
	"github.com/bedrock-gateway/bedrock-assumerole/model"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/claude"
)

// Chat runs one conversational turn against a Claude model.
func (s *Service) Chat(ctx context.Context, requestID string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	requestID = ensureRequestID(requestID)
	configured := strings.TrimSpace(req.ModelID)
	if !aws.IsClaudeModel(configured) {
		return nil, &aws.UnsupportedModelError{ModelID: configured}
	}

	target, err := ResolveTarget(req.Credentials, config.AWSChatRoleSessionName)
	if err != nil {
		return nil, err
	}
	effective := target.EffectiveModelID(configured)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultChatMaxTokens
	}
	temperature := req.Temperature
	if temperature == nil {
		t := config.DefaultTemperature
		temperature = &t
	}

	body, err := claude.ConvertChat(req.Messages, claude.ChatOptions{
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Tools:       req.Tools,
	})
	if err != nil {
		return nil, &InvalidInputError{Field: "messages", Err: err}
	}
	if len(body.Messages) == 0 {
		return nil, &InvalidInputError{Field: "messages", Err: errors.New("conversation has no user or assistant messages")}
	}

	gmw.GetLogger(ctx).Debug("invoking chat model",
		zap.String("configured_model_id", configured),
		zap.String("effective_model_id", effective),
		zap.Int("messages", len(body.Messages)),
		zap.Int("tools", len(body.Tools)))

	entry := &model.InvocationLog{
		RequestId:         requestID,
		Endpoint:          model.EndpointChat,
		ConfiguredModelId: configured,
		EffectiveModelId:  effective,
		Family:            aws.FamilyClaude.String(),
		Region:            target.Base.Region,
	}
	raw, err := s.invoke(ctx, target.Base, effective, body, entry)
	if err != nil {
		return nil, err
	}

	resp, err := claude.ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	return &dto.ChatResponse{
		ModelID:           effective,
		ConfiguredModelID: configured,
		Text:              resp.Text(),
		ToolCalls:         resp.ToolCalls(),
		Usage:             resp.Usage,
		StopReason:        resp.StopReason,
	}, nil
}
