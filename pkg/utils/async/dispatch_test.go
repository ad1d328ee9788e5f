package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/utils/async"
	"github.com/m-mizutani/gt"
)

// safeBuffer is a thread-safe buffer for concurrent logging
type safeBuffer struct {
	b bytes.Buffer
	m sync.Mutex
}

func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.Write(p)
}

func (sb *safeBuffer) String() string {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.String()
}

// syncHandler signals through done once a record is written
type syncHandler struct {
	handler slog.Handler
	done    chan struct{}
}

func newSyncHandler(buf *safeBuffer) *syncHandler {
	return &syncHandler{
		handler: slog.NewTextHandler(buf, &slog.HandlerOptions{
			Level: slog.LevelError,
		}),
		done: make(chan struct{}, 1),
	}
}

func (h *syncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *syncHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.handler.Handle(ctx, r)
	select {
	case h.done <- struct{}{}:
	default:
	}
	return err
}

func (h *syncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &syncHandler{handler: h.handler.WithAttrs(attrs), done: h.done}
}

func (h *syncHandler) WithGroup(name string) slog.Handler {
	return &syncHandler{handler: h.handler.WithGroup(name), done: h.done}
}

func TestDispatch(t *testing.T) {
	t.Run("runs the job on another goroutine", func(t *testing.T) {
		var wg sync.WaitGroup
		executed := false

		wg.Add(1)
		async.Dispatch(context.Background(), "test", func(ctx context.Context) error {
			defer wg.Done()
			executed = true
			return nil
		})

		wg.Wait()
		gt.True(t, executed)
	})

	t.Run("logs a returned error without crashing", func(t *testing.T) {
		var wg sync.WaitGroup

		wg.Add(1)
		async.Dispatch(context.Background(), "test", func(ctx context.Context) error {
			defer wg.Done()
			return errors.New("job error")
		})

		wg.Wait()
	})

	t.Run("recovers a panic and logs its stack", func(t *testing.T) {
		logBuf := &safeBuffer{}
		handler := newSyncHandler(logBuf)
		ctx := ctxlog.With(context.Background(), slog.New(handler))

		done := make(chan bool, 1)
		async.Dispatch(ctx, "release", func(ctx context.Context) error {
			defer func() {
				done <- true
			}()
			panic("job panic")
		})

		select {
		case <-done:
			select {
			case <-handler.done:
			case <-time.After(1 * time.Second):
				t.Fatal("log was not written within timeout")
			}

			logOutput := logBuf.String()
			gt.True(t, strings.Contains(logOutput, "panic in background job"))
			gt.True(t, strings.Contains(logOutput, "job panic"))
			gt.True(t, strings.Contains(logOutput, "release"))
			gt.True(t, strings.Contains(logOutput, "goroutine"))
		case <-time.After(1 * time.Second):
			t.Fatal("job did not complete within timeout")
		}
	})

	t.Run("job context keeps the logger", func(t *testing.T) {
		ctx := ctxlog.With(context.Background(), slog.Default())

		var wg sync.WaitGroup
		wg.Add(1)
		async.Dispatch(ctx, "test", func(jobCtx context.Context) error {
			defer wg.Done()
			gt.NotNil(t, ctxlog.From(jobCtx))
			return nil
		})

		wg.Wait()
	})

	t.Run("job context ignores caller cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		var wg sync.WaitGroup
		wg.Add(1)
		async.Dispatch(ctx, "test", func(jobCtx context.Context) error {
			defer wg.Done()
			cancel()
			select {
			case <-jobCtx.Done():
				t.Error("job context was cancelled")
			default:
			}
			return nil
		})

		wg.Wait()
	})
}

func TestDetach(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.With(ctx, slog.Default())

	detached := async.Detach(ctx)
	cancel()

	gt.NotNil(t, ctxlog.From(detached))
	gt.True(t, detached.Err() == nil)
}
