// Package controller turns gateway requests into Bedrock invocations: it
// resolves credentials and the effective model id, builds the model specific
// body and records every call.
package controller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/random"
	"github.com/bedrock-gateway/bedrock-assumerole/model"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/assumerole"
)

// Invoker sends a body to a Bedrock model with credentials assumed from base.
type Invoker interface {
	Invoke(ctx context.Context, base assumerole.BaseCredentials, modelID string, body any) (json.RawMessage, error)
}

// Recorder receives one entry per Bedrock call.
type Recorder interface {
	Record(ctx context.Context, entry *model.InvocationLog)
}

type RecorderFunc func(ctx context.Context, entry *model.InvocationLog)

func (f RecorderFunc) Record(ctx context.Context, entry *model.InvocationLog) { f(ctx, entry) }

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, *model.InvocationLog) {}

type Option func(*Service)

// WithConcurrency bounds how many batch items run at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is safe for concurrent use.
type Service struct {
	bedrock     Invoker
	recorder    Recorder
	concurrency int
	now         func() time.Time
}

func NewService(bedrock Invoker, opts ...Option) *Service {
	s := &Service{
		bedrock:     bedrock,
		recorder:    nopRecorder{},
		concurrency: config.BatchConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ensureRequestID returns id, or a fresh one for callers outside the HTTP stack.
func ensureRequestID(id string) string {
	if id == "" {
		return random.GetUUID()
	}
	return id
}
