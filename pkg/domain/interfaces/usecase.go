package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// Releaser runs one complete release attempt for the given bump fragment.
type Releaser interface {
	Release(ctx context.Context, fragment model.BumpFragment) (*model.ReleaseResult, error)
}

// ReleaseStarter begins a release attempt in the background. It returns
// types.ErrReleaseInFlight without starting anything when an attempt is
// already running in this process.
type ReleaseStarter interface {
	StartRelease(ctx context.Context, fragment model.BumpFragment) error
}
