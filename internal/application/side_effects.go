package application

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSideEffectTimeout = 10 * time.Second

// postCommit runs notifications and event publishing after a write has
// committed. Each effect gets a context detached from the request and bounded
// by timeout; a panic is logged and swallowed.
type postCommit struct {
	logger   *zap.Logger
	timeout  time.Duration
	inflight sync.WaitGroup
}

func newPostCommit(logger *zap.Logger) *postCommit {
	return &postCommit{logger: logger, timeout: defaultSideEffectTimeout}
}

func (p *postCommit) run(ctx context.Context, name string, fn func(ctx context.Context)) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("post-commit side effect panicked",
					zap.String("effect", name),
					zap.Any("panic", r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (p *postCommit) wait() {
	p.inflight.Wait()
}
