package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/utils/async"
	"github.com/m-mizutani/goerr/v2"
)

type releaseRunner struct {
	releaser interfaces.Releaser
	timeout  time.Duration
	running  atomic.Bool
}

// RunnerOption configures the release runner.
type RunnerOption func(*releaseRunner)

// WithReleaseTimeout bounds each background attempt. Zero means no bound.
func WithReleaseTimeout(d time.Duration) RunnerOption {
	return func(uc *releaseRunner) {
		uc.timeout = d
	}
}

// NewRunner wraps a Releaser for trigger-driven use. The runner holds the
// process-wide single-flight slot: at most one release attempt runs at a
// time, and further triggers are rejected instead of queued.
func NewRunner(releaser interfaces.Releaser, opts ...RunnerOption) *releaseRunner {
	uc := &releaseRunner{releaser: releaser}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// StartRelease begins a release attempt in the background and returns as
// soon as it is accepted. A trigger while an attempt is running returns
// types.ErrReleaseInFlight.
func (uc *releaseRunner) StartRelease(ctx context.Context, fragment model.BumpFragment) error {
	if !uc.running.CompareAndSwap(false, true) {
		return goerr.Wrap(types.ErrReleaseInFlight, "release trigger rejected",
			goerr.V("fragment", fragment),
		)
	}

	ctxlog.From(ctx).Info("accepted release trigger", "fragment", fragment)

	async.Dispatch(ctx, "release", func(ctx context.Context) error {
		defer uc.running.Store(false)

		if uc.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, uc.timeout)
			defer cancel()
		}

		_, err := uc.releaser.Release(ctx, fragment)
		if err != nil && !types.IsExpectedAbort(err) {
			return err
		}
		return nil
	})
	return nil
}

var _ interfaces.ReleaseStarter = (*releaseRunner)(nil)
