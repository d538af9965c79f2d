package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/assumerole"
)

const contentTypeJSON = "application/json"

// BedrockClient is the subset of the Bedrock runtime API used for invocation.
type BedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// ClientFactory builds a Bedrock client signed with temporary credentials.
type ClientFactory func(ctx context.Context, region string, creds *assumerole.TemporaryCredentials) (BedrockClient, error)

// NewBedrockClient is the default ClientFactory.
func NewBedrockClient(ctx context.Context, region string, creds *assumerole.TemporaryCredentials) (BedrockClient, error) {
	if creds == nil {
		return nil, assumerole.ErrNoTemporaryCredentials
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// InvokeError carries the Bedrock error code and HTTP status of a failed invocation.
type InvokeError struct {
	ModelID    string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *InvokeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("invoke model %s: %s: %s", e.ModelID, e.Code, e.Message)
	}
	return fmt.Sprintf("invoke model %s: %s", e.ModelID, e.Message)
}

func (e *InvokeError) Unwrap() error {
	return e.Err
}

func wrapInvokeError(modelID string, err error) *InvokeError {
	ie := &InvokeError{
		ModelID:    modelID,
		StatusCode: http.StatusBadGateway,
		Message:    err.Error(),
		Err:        err,
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ie.Code = apiErr.ErrorCode()
		ie.Message = apiErr.ErrorMessage()
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() > 0 {
		ie.StatusCode = respErr.HTTPStatusCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		ie.StatusCode = http.StatusGatewayTimeout
	}
	return ie
}

type AdaptorOption func(*Adaptor)

func WithClientFactory(f ClientFactory) AdaptorOption {
	return func(a *Adaptor) { a.newClient = f }
}

func WithTimeout(d time.Duration) AdaptorOption {
	return func(a *Adaptor) { a.timeout = d }
}

// Adaptor invokes Bedrock models on behalf of an assumed role.
type Adaptor struct {
	credentials *assumerole.Provider
	newClient   ClientFactory
	timeout     time.Duration
}

func NewAdaptor(provider *assumerole.Provider, opts ...AdaptorOption) *Adaptor {
	a := &Adaptor{
		credentials: provider,
		newClient:   NewBedrockClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Credentials exposes the provider used to assume the role.
func (a *Adaptor) Credentials() *assumerole.Provider {
	return a.credentials
}

// Invoke marshals body, sends it to modelID and returns the raw response body.
func (a *Adaptor) Invoke(ctx context.Context, base assumerole.BaseCredentials, modelID string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal invoke body")
	}
	return a.InvokeRaw(ctx, base, modelID, payload)
}

// InvokeRaw sends an already encoded body.
func (a *Adaptor) InvokeRaw(ctx context.Context, base assumerole.BaseCredentials, modelID string, payload []byte) (json.RawMessage, error) {
	creds, err := a.credentials.Retrieve(ctx, base)
	if err != nil {
		return nil, err
	}

	client, err := a.newClient(ctx, base.Region, creds)
	if err != nil {
		return nil, errors.Wrap(err, "create bedrock client")
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	logger.Logger.Debug("invoking bedrock model",
		zap.String("model_id", modelID),
		zap.String("region", base.Region),
		zap.Int("body_bytes", len(payload)))

	out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        payload,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	})
	if err != nil {
		return nil, wrapInvokeError(modelID, err)
	}
	if out == nil {
		return nil, &InvokeError{ModelID: modelID, StatusCode: http.StatusBadGateway, Message: "empty response"}
	}
	return out.Body, nil
}
