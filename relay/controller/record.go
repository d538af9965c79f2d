package controller

import (
	"context"

	"github.com/Laisky/zap"

	"github.com/bedrock-gateway/bedrock-assumerole/common/graceful"
	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
	"github.com/bedrock-gateway/bedrock-assumerole/model"
)

// DBRecorder writes entries to the invocation log in tracked background goroutines.
func DBRecorder() Recorder {
	return RecorderFunc(func(ctx context.Context, entry *model.InvocationLog) {
		graceful.Go(context.WithoutCancel(ctx), "record_invocation", func(ctx context.Context) {
			if err := model.RecordInvocation(ctx, entry); err != nil {
				logger.Logger.Warn("failed to record invocation",
					zap.String("request_id", entry.RequestId),
					zap.Error(err))
			}
		})
	})
}
