package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// RequestGateway defines operations against the hosting platform's pull
// request API. Implementations never cache platform state beyond a single
// snapshot read; every call re-reads ground truth.
type RequestGateway interface {
	// FindOpen returns the open request whose head is exactly sourceBranch,
	// or nil when no open request exists. Closed and merged requests never
	// block a new release.
	FindOpen(ctx context.Context, sourceBranch types.BranchName) (*model.ReleaseRequest, error)

	// Create opens a new request. A duplicate reported by the platform maps
	// to types.ErrRequestAlreadyExists.
	Create(ctx context.Context, input *model.RequestInput) (*model.ReleaseRequest, error)

	// Rollup reads a single snapshot of the status checks attached to the
	// request's current head commit.
	Rollup(ctx context.Context, number types.RequestNumber) (model.CheckRollup, error)

	// AwaitRollupPopulated polls Rollup at a fixed interval until it is
	// non-empty. The wait is unbounded unless ctx carries a deadline.
	AwaitRollupPopulated(ctx context.Context, number types.RequestNumber, interval time.Duration) (model.CheckRollup, error)

	// AwaitAllTerminal polls Rollup at a fixed interval until every check is
	// in a terminal state, then returns the final rollup for classification.
	AwaitAllTerminal(ctx context.Context, number types.RequestNumber, interval time.Duration) (model.CheckRollup, error)
}
