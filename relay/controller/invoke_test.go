package controller

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
	"github.com/bedrock-gateway/bedrock-assumerole/dto"
	"github.com/bedrock-gateway/bedrock-assumerole/model"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/assumerole"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/profile"
)

const (
	haikuModel  = "us.anthropic.claude-3-5-haiku-20241022-v1:0"
	sonnetModel = "us.anthropic.claude-sonnet-4-20250514-v1:0"
	novaModel   = "amazon.nova-canvas-v1:0"

	claudeReply = `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"Hello there"}],"stop_reason":"end_turn","usage":{"input_tokens":11,"output_tokens":3}}`
	imageReply  = `{"images":["aW1hZ2Ux"]}`
)

type invokeCall struct {
	base    assumerole.BaseCredentials
	modelID string
	body    []byte
}

type fakeInvoker struct {
	mu      sync.Mutex
	calls   []invokeCall
	respond func(modelID string, body []byte) (json.RawMessage, error)
}

func (f *fakeInvoker) Invoke(_ context.Context, base assumerole.BaseCredentials, modelID string, body any) (json.RawMessage, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, invokeCall{base: base, modelID: modelID, body: raw})
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(modelID, raw)
	}
	return json.RawMessage(claudeReply), nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// setEnvConfig points the environment backed defaults at test credentials.
func setEnvConfig(t *testing.T, accessKey, secret, roleArn string) {
	t.Helper()

	prev := struct {
		ak, sk, role, region, account, legacy, profiles, session, chatSession string
		duration                                                            int
	}{
		config.AWSAccessKeyID, config.AWSSecretAccessKey, config.AWSRoleArn, config.AWSRegion,
		config.InferenceProfileAccountID, config.InferenceProfileID, config.InferenceProfilesJSON,
		config.AWSRoleSessionName, config.AWSChatRoleSessionName, config.AWSRoleDurationSeconds,
	}
	t.Cleanup(func() {
		config.AWSAccessKeyID = prev.ak
		config.AWSSecretAccessKey = prev.sk
		config.AWSRoleArn = prev.role
		config.AWSRegion = prev.region
		config.InferenceProfileAccountID = prev.account
		config.InferenceProfileID = prev.legacy
		config.InferenceProfilesJSON = prev.profiles
		config.AWSRoleSessionName = prev.session
		config.AWSChatRoleSessionName = prev.chatSession
		config.AWSRoleDurationSeconds = prev.duration
	})

	config.AWSAccessKeyID = accessKey
	config.AWSSecretAccessKey = secret
	config.AWSRoleArn = roleArn
	config.AWSRegion = "us-west-2"
	config.InferenceProfileAccountID = ""
	config.InferenceProfileID = ""
	config.InferenceProfilesJSON = ""
	config.AWSRoleSessionName = "bedrock-assumerole-session"
	config.AWSChatRoleSessionName = "bedrock-assumerole-chat-session"
	config.AWSRoleDurationSeconds = 3600
}

func testCtx() context.Context {
	return gmw.SetLogger(context.Background(), logger.Logger)
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
}

func tinyPNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestProcessBatchClaudeText(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{}
	svc := NewService(fake, WithConcurrency(1), WithClock(fixedClock))

	resp, err := svc.ProcessBatch(testCtx(), "req-1", &dto.InvokeRequest{
		Items: []dto.InvokeItem{{ModelID: " " + haikuModel + " ", Prompt: "Say hello"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	out := resp.Results[0].InvokeOutput
	require.NotNil(t, out)
	require.Equal(t, haikuModel, out.ModelID)
	require.Equal(t, haikuModel, out.ConfiguredModelID)
	require.Equal(t, "claude", out.Family)
	require.Equal(t, "Say hello", out.Prompt)
	require.Equal(t, "Hello there", out.Content)
	require.Equal(t, 11, out.Usage.InputTokens)
	require.Equal(t, 3, out.Usage.OutputTokens)
	require.Equal(t, "2025-03-01T08:30:00Z", out.Timestamp)
	require.JSONEq(t, claudeReply, string(out.Response))

	require.Len(t, fake.calls, 1)
	call := fake.calls[0]
	require.Equal(t, haikuModel, call.modelID)
	require.Equal(t, "AKIAENV", call.base.AccessKeyID)
	require.Equal(t, "us-west-2", call.base.Region)
	require.Equal(t, "bedrock-assumerole-session", call.base.SessionName)
	require.JSONEq(t, `{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens": 1000,
		"temperature": 0.7,
		"messages": [{"role": "user", "content": "Say hello"}]
	}`, string(call.body))
}

func TestProcessBatchUsesInferenceProfiles(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{}
	svc := NewService(fake, WithConcurrency(1))

	resp, err := svc.ProcessBatch(testCtx(), "req-2", &dto.InvokeRequest{
		Credentials: &dto.CredentialSettings{
			Region:                    "eu-central-1",
			InferenceProfileAccountID: "210987654321",
			InferenceProfileID:        "legacy01",
			InferenceProfilesJSON:     `{"` + sonnetModel + `": "sonnet01"}`,
		},
		Items: []dto.InvokeItem{
			{ModelID: sonnetModel, Prompt: "a"},
			{ModelID: haikuModel, Prompt: "b"},
		},
	})
	require.NoError(t, err)

	require.Equal(t, "arn:aws:bedrock:eu-central-1:210987654321:application-inference-profile/sonnet01", resp.Results[0].ModelID)
	require.Equal(t, sonnetModel, resp.Results[0].ConfiguredModelID)
	require.Equal(t, "arn:aws:bedrock:eu-central-1:210987654321:application-inference-profile/legacy01", resp.Results[1].ModelID)
	require.Equal(t, haikuModel, resp.Results[1].ConfiguredModelID)
	require.Equal(t, "eu-central-1", fake.calls[0].base.Region)
}

func TestProcessBatchContinueOnFail(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{}
	svc := NewService(fake, WithConcurrency(1))

	resp, err := svc.ProcessBatch(testCtx(), "req-3", &dto.InvokeRequest{
		ContinueOnFail: true,
		Items: []dto.InvokeItem{
			{ModelID: haikuModel, Prompt: "ok"},
			{ModelID: "meta.llama3-70b-instruct-v1:0", Prompt: "nope"},
			{ModelID: haikuModel, InputType: "image", Prompt: "describe"},
			{ModelID: haikuModel, Prompt: "still ok"},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 4)

	require.NotNil(t, resp.Results[0].InvokeOutput)
	require.NotNil(t, resp.Results[3].InvokeOutput)

	encoded, err := json.Marshal(resp.Results[1])
	require.NoError(t, err)
	require.JSONEq(t, `{"error":"Unsupported model: meta.llama3-70b-instruct-v1:0","itemIndex":1}`, string(encoded))

	require.Equal(t, "Missing binary image data for image input.", resp.Results[2].Error)
	require.Equal(t, 2, *resp.Results[2].ItemIndex)
	require.Equal(t, 2, fake.callCount())
}

func TestProcessBatchAbortsOnFirstFailure(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{}
	svc := NewService(fake, WithConcurrency(1))

	_, err := svc.ProcessBatch(testCtx(), "req-4", &dto.InvokeRequest{
		Items: []dto.InvokeItem{
			{ModelID: haikuModel, Prompt: "ok"},
			{ModelID: "cohere.command-r-v1:0", Prompt: "fails"},
			{ModelID: haikuModel, Prompt: "never sent"},
		},
	})
	require.EqualError(t, err, "Unsupported model: cohere.command-r-v1:0")

	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	require.Equal(t, 1, itemErr.Index)
	require.Equal(t, 1, fake.callCount())
}

func TestProcessBatchStopsAfterInvokeFailure(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{respond: func(string, []byte) (json.RawMessage, error) {
		return nil, errors.New("ThrottlingException: slow down")
	}}
	svc := NewService(fake, WithConcurrency(1))

	items := make([]dto.InvokeItem, 5)
	for i := range items {
		items[i] = dto.InvokeItem{ModelID: haikuModel, Prompt: "hi"}
	}
	for range 20 {
		before := fake.callCount()
		_, err := svc.ProcessBatch(testCtx(), "req-abort", &dto.InvokeRequest{Items: items})

		var itemErr *ItemError
		require.ErrorAs(t, err, &itemErr)
		require.Equal(t, 0, itemErr.Index)
		require.Equal(t, before+1, fake.callCount())
	}
}

func TestProcessBatchMissingCredentials(t *testing.T) {
	setEnvConfig(t, "", "", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{}
	svc := NewService(fake)

	resp, err := svc.ProcessBatch(testCtx(), "req-5", &dto.InvokeRequest{
		ContinueOnFail: true,
		Items:          []dto.InvokeItem{{ModelID: haikuModel}, {ModelID: haikuModel}},
	})
	require.NoError(t, err)
	for i, r := range resp.Results {
		require.Equal(t, assumerole.ErrMissingBaseCredentials.Error(), r.Error)
		require.Equal(t, i, *r.ItemIndex)
	}
	require.Zero(t, fake.callCount())

	_, err = svc.ProcessBatch(testCtx(), "req-6", &dto.InvokeRequest{
		Items: []dto.InvokeItem{{ModelID: haikuModel}},
	})
	require.ErrorIs(t, err, assumerole.ErrMissingBaseCredentials)
}

func TestProcessBatchMalformedProfileJSON(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	svc := NewService(&fakeInvoker{})

	_, err := svc.ProcessBatch(testCtx(), "req-7", &dto.InvokeRequest{
		Credentials: &dto.CredentialSettings{InferenceProfilesJSON: `{"a": "b"`},
		Items:       []dto.InvokeItem{{ModelID: haikuModel}},
	})
	require.ErrorContains(t, err, `Invalid JSON in "Application Inference Profiles JSON" credential field:`)

	var cfgErr *profile.InvalidConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestProcessBatchClaudeImage(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{}
	svc := NewService(fake)

	_, err := svc.ProcessBatch(testCtx(), "req-8", &dto.InvokeRequest{
		Items: []dto.InvokeItem{{
			ModelID:   haikuModel,
			InputType: "image",
			Prompt:    "What is in this picture?",
			Image:     &dto.BinaryInput{Data: "data:image/jpeg;base64,/9j/AAAA"},
			MaxTokens: 256,
		}},
	})
	require.NoError(t, err)

	body := gjson.ParseBytes(fake.calls[0].body)
	require.EqualValues(t, 256, body.Get("max_tokens").Int())
	content := body.Get("messages.0.content").Array()
	require.Len(t, content, 2)
	require.Equal(t, "image", content[0].Get("type").String())
	require.Equal(t, "image/jpeg", content[0].Get("source.media_type").String())
	require.Equal(t, "/9j/AAAA", content[0].Get("source.data").String())
	require.Equal(t, "text", content[1].Get("type").String())
	require.Equal(t, "What is in this picture?", content[1].Get("text").String())
}

func TestProcessBatchClaudeImageDetectsMediaType(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{}
	svc := NewService(fake)

	_, err := svc.ProcessBatch(testCtx(), "req-9", &dto.InvokeRequest{
		Items: []dto.InvokeItem{{
			ModelID:   haikuModel,
			InputType: "image",
			Prompt:    "describe",
			Image:     &dto.BinaryInput{Data: tinyPNG(t)},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "image/png", gjson.GetBytes(fake.calls[0].body, "messages.0.content.0.source.media_type").String())
}

func TestProcessBatchImageGeneration(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{respond: func(string, []byte) (json.RawMessage, error) {
		return json.RawMessage(imageReply), nil
	}}
	var recorded []*model.InvocationLog
	svc := NewService(fake, WithRecorder(RecorderFunc(func(_ context.Context, e *model.InvocationLog) {
		recorded = append(recorded, e)
	})))

	source := tinyPNG(t)
	resp, err := svc.ProcessBatch(testCtx(), "req-10", &dto.InvokeRequest{
		Items: []dto.InvokeItem{
			{ModelID: novaModel, Prompt: "a lighthouse at dusk", ImageOptions: &dto.ImageOptions{Seed: 42, Width: 512, Height: 512}},
			{ModelID: novaModel, Prompt: "same but blue", ImageOptions: &dto.ImageOptions{
				TaskType:    "IMAGE_VARIATION",
				SourceImage: &dto.BinaryInput{Data: "data:image/png;base64," + source},
			}},
		},
	})
	require.NoError(t, err)

	first := resp.Results[0].InvokeOutput
	require.Equal(t, "image_generation", first.Family)
	require.Equal(t, "TEXT_IMAGE", first.TaskType)
	require.Equal(t, []string{"aW1hZ2Ux"}, first.Images)
	require.Empty(t, first.Content)

	body := gjson.ParseBytes(fake.calls[0].body)
	require.Equal(t, "TEXT_IMAGE", body.Get("taskType").String())
	require.Equal(t, "a lighthouse at dusk", body.Get("textToImageParams.text").String())
	require.EqualValues(t, 42, body.Get("imageGenerationConfig.seed").Int())
	require.EqualValues(t, 512, body.Get("imageGenerationConfig.width").Int())
	require.False(t, body.Get("imageGenerationConfig.cfgScale").Exists())

	variation := gjson.ParseBytes(fake.calls[1].body)
	require.Equal(t, "IMAGE_VARIATION", variation.Get("taskType").String())
	require.Equal(t, source, variation.Get("imageVariationParams.images.0").String())

	require.Len(t, recorded, 2)
	require.Equal(t, "TEXT_IMAGE", recorded[0].TaskType)
	require.Equal(t, "IMAGE_VARIATION", recorded[1].TaskType)
	require.True(t, recorded[0].Success)
	require.Equal(t, "req-10", recorded[1].RequestId)
	require.Equal(t, 1, recorded[1].ItemIndex)
}

func TestProcessBatchImageGenerationErrors(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{respond: func(string, []byte) (json.RawMessage, error) {
		return json.RawMessage(`{"images":[],"error":"content filtered"}`), nil
	}}
	svc := NewService(fake)

	resp, err := svc.ProcessBatch(testCtx(), "req-11", &dto.InvokeRequest{
		ContinueOnFail: true,
		Items: []dto.InvokeItem{
			{ModelID: novaModel, Prompt: "x", ImageOptions: &dto.ImageOptions{TaskType: "SKETCH"}},
			{ModelID: novaModel, Prompt: "x", ImageOptions: &dto.ImageOptions{TaskType: "INPAINTING", SourceImage: &dto.BinaryInput{Data: "bm90IGFuIGltYWdl"}}},
			{ModelID: novaModel, Prompt: "x"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Unsupported image task type: SKETCH", resp.Results[0].Error)
	require.Contains(t, resp.Results[1].Error, "invalid source_image")
	require.Equal(t, "image generation failed: content filtered", resp.Results[2].Error)
	require.Equal(t, 1, fake.callCount())
}

func TestProcessBatchConcurrentKeepsOrder(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{respond: func(_ string, body []byte) (json.RawMessage, error) {
		prompt := gjson.GetBytes(body, "messages.0.content").String()
		if prompt == "p0" {
			time.Sleep(30 * time.Millisecond)
		}
		return json.RawMessage(`{"content":[{"type":"text","text":"echo ` + prompt + `"}]}`), nil
	}}
	svc := NewService(fake, WithConcurrency(4))

	items := make([]dto.InvokeItem, 6)
	for i := range items {
		items[i] = dto.InvokeItem{ModelID: haikuModel, Prompt: "p" + string(rune('0'+i))}
	}
	resp, err := svc.ProcessBatch(testCtx(), "req-12", &dto.InvokeRequest{Items: items})
	require.NoError(t, err)
	for i, r := range resp.Results {
		require.Equal(t, "echo p"+string(rune('0'+i)), r.Content)
	}
}

func TestProcessBatchInvokeErrorRecorded(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	fake := &fakeInvoker{respond: func(string, []byte) (json.RawMessage, error) {
		return nil, errors.New("AccessDeniedException: not allowed")
	}}
	var recorded []*model.InvocationLog
	svc := NewService(fake, WithRecorder(RecorderFunc(func(_ context.Context, e *model.InvocationLog) {
		recorded = append(recorded, e)
	})))

	resp, err := svc.ProcessBatch(testCtx(), "req-13", &dto.InvokeRequest{
		ContinueOnFail: true,
		Items:          []dto.InvokeItem{{ModelID: haikuModel, Prompt: "x"}},
	})
	require.NoError(t, err)
	require.Equal(t, "AccessDeniedException: not allowed", resp.Results[0].Error)
	require.Len(t, recorded, 1)
	require.False(t, recorded[0].Success)
	require.Equal(t, "AccessDeniedException: not allowed", recorded[0].ErrorMessage)
}

func TestPreviewModel(t *testing.T) {
	setEnvConfig(t, "", "", "")
	config.InferenceProfileAccountID = "123456789012"
	config.InferenceProfilesJSON = `{"` + sonnetModel + `": "sonnet-profile"}`

	resp, err := PreviewModel(nil, " "+sonnetModel+" ")
	require.NoError(t, err)
	require.Equal(t, sonnetModel, resp.ConfiguredModelID)
	require.Equal(t, "arn:aws:bedrock:us-west-2:123456789012:application-inference-profile/sonnet-profile", resp.ModelID)
	require.Equal(t, "claude", resp.Family)
	require.True(t, resp.UsesProfile)

	resp, err = PreviewModel(&dto.CredentialSettings{Region: "eu-west-1"}, "unknown.model")
	require.NoError(t, err)
	require.Equal(t, "unknown.model", resp.ModelID)
	require.Empty(t, resp.Family)
	require.False(t, resp.UsesProfile)
}

func TestProcessBatchGeneratesRequestID(t *testing.T) {
	setEnvConfig(t, "AKIAENV", "env-secret", "arn:aws:iam::123456789012:role/bedrock")
	var got []string
	svc := NewService(&fakeInvoker{}, WithRecorder(RecorderFunc(func(_ context.Context, e *model.InvocationLog) {
		got = append(got, e.RequestId)
	})))

	_, err := svc.ProcessBatch(testCtx(), "", &dto.InvokeRequest{Items: []dto.InvokeItem{{ModelID: haikuModel, Prompt: "hi"}}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0], 32)
}
