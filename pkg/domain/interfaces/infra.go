package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// GitRepo defines the version-control operations the orchestrator issues
// against the local working copy and its remote.
type GitRepo interface {
	// ListTags returns all tag names known to the repository.
	ListTags(ctx context.Context) ([]types.TagName, error)

	// CreateBranch creates the named branch from the current trunk snapshot
	// and switches the working tree to it.
	CreateBranch(ctx context.Context, name types.BranchName) error

	// CommitAll stages every working-tree change and commits it, returning
	// the new commit's SHA.
	CommitAll(ctx context.Context, message string) (types.CommitSHA, error)

	// PushBranch pushes the branch to the remote, creating it there. A
	// rejected push (diverging remote branch) is reported with
	// types.TagPushRejected.
	PushBranch(ctx context.Context, name types.BranchName) error

	// CreateTag creates an annotated tag pointing at the given commit.
	CreateTag(ctx context.Context, tag types.TagName, message string, commit types.CommitSHA) error

	// PushTag pushes a single tag to the remote.
	PushTag(ctx context.Context, tag types.TagName) error
}

// BuildRunner invokes the external build/packaging step that mutates the
// working tree for the target version.
type BuildRunner interface {
	Run(ctx context.Context, version model.Version) error
}

// Notifier reports release outcomes to an external channel. Implementations
// must treat delivery as best-effort; a notification failure never changes
// the release outcome.
type Notifier interface {
	NotifyReleased(ctx context.Context, result *model.ReleaseResult) error
	NotifyAborted(ctx context.Context, result *model.ReleaseResult) error
}

// TokenSource yields a bearer token for the hosting platform. Tokens are
// short-lived; callers fetch one per operation instead of storing it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
