package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
)

// Detach returns a background context carrying the logger of ctx. A release
// attempt started from an HTTP trigger outlives the request by minutes, so
// it must not inherit the request's cancellation, only its log correlation.
func Detach(ctx context.Context) context.Context {
	return ctxlog.With(context.Background(), ctxlog.From(ctx))
}

// Dispatch runs the named job on a new goroutine with a detached context.
// Panics are recovered and logged with their stack; a returned error is
// logged as the job's final line. The caller gets no completion signal, the
// job's own side effects are its only output.
func Dispatch(ctx context.Context, name string, job func(ctx context.Context) error) {
	jobCtx := Detach(ctx)

	go func() {
		logger := ctxlog.From(jobCtx)

		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in background job",
					"job", name,
					"recover", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		if err := job(jobCtx); err != nil {
			logger.Error("background job failed",
				"job", name,
				"error", err,
			)
		}
	}()
}
