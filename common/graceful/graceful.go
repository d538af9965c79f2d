// Package graceful tracks in-flight requests and background writes so the
// server can drain before exiting.
package graceful

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
)

var (
	inFlight atomic.Int64
	draining atomic.Bool
	tasks    sync.WaitGroup
)

// BeginRequest counts a request until the returned func is called.
func BeginRequest() func() {
	inFlight.Add(1)
	return func() { inFlight.Add(-1) }
}

// InFlight returns the number of requests that have not finished yet.
func InFlight() int64 {
	return inFlight.Load()
}

// RequestTracker counts every request passing through the router.
func RequestTracker() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := BeginRequest()
		defer done()
		c.Next()
	}
}

// Go runs fn in a tracked goroutine. Drain waits for it.
func Go(ctx context.Context, name string, fn func(context.Context)) {
	tasks.Add(1)
	go func() {
		defer tasks.Done()
		start := time.Now()
		fn(ctx)
		logger.Logger.Debug("background task done",
			zap.String("name", name), zap.Duration("elapsed", time.Since(start)))
	}()
}

func SetDraining()     { draining.Store(true) }
func IsDraining() bool { return draining.Load() }

// Drain blocks until tracked tasks finish and no request is in flight, or ctx ends.
func Drain(ctx context.Context) error {
	SetDraining()

	done := make(chan struct{})
	go func() {
		tasks.Wait()
		close(done)
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	tasksDone := false
	for {
		if tasksDone && inFlight.Load() == 0 {
			logger.Logger.Info("graceful drain complete")
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Logger.Error("graceful drain timeout",
				zap.Int64("in_flight_requests", inFlight.Load()),
				zap.Bool("tasks_done", tasksDone))
			return ctx.Err()
		case <-done:
			tasksDone = true
			done = nil
		case <-ticker.C:
		}
	}
}
