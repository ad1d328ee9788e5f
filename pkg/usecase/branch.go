package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type branchBuilder struct {
	repo  interfaces.GitRepo
	build interfaces.BuildRunner
}

// NewBranchBuilder creates the component that turns the current trunk
// snapshot into a pushed release branch.
func NewBranchBuilder(repo interfaces.GitRepo, build interfaces.BuildRunner) *branchBuilder {
	return &branchBuilder{
		repo:  repo,
		build: build,
	}
}

// CreateAndPush prepares and publishes the release branch for the target
// version: branch off the current HEAD, run the build step, commit the
// resulting changes as the version bump, and push. It returns the SHA of the
// bump commit. The working copy is left on the release branch.
func (uc *branchBuilder) CreateAndPush(ctx context.Context, next model.Version) (types.CommitSHA, error) {
	logger := ctxlog.From(ctx)
	branch := next.BranchName()

	if err := uc.repo.CreateBranch(ctx, branch); err != nil {
		return "", goerr.Wrap(err, "failed to create release branch", goerr.V("branch", branch))
	}
	logger.Debug("created release branch", "branch", branch)

	if err := uc.build.Run(ctx, next); err != nil {
		return "", err
	}

	sha, err := uc.repo.CommitAll(ctx, fmt.Sprintf("chore: Bump version to %s", next))
	if err != nil {
		return "", goerr.Wrap(err, "failed to commit version bump", goerr.V("version", next))
	}

	if err := uc.repo.PushBranch(ctx, branch); err != nil {
		return "", err
	}

	logger.Info("pushed release branch",
		"branch", branch,
		"commit", sha.Short(),
	)
	return sha, nil
}
