package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type versionResolver struct {
	repo interfaces.GitRepo
}

// NewVersionResolver creates a resolver that derives versions from the
// repository's release tags. Tags are the only source of truth; nothing is
// read from manifests or previous runs.
func NewVersionResolver(repo interfaces.GitRepo) *versionResolver {
	return &versionResolver{repo: repo}
}

// Latest returns the highest released version, or nil when the repository
// has no release tag yet. Tags that do not match the release form are
// ignored.
func (uc *versionResolver) Latest(ctx context.Context) (*model.Version, error) {
	tags, err := uc.repo.ListTags(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tags for version resolution")
	}

	logger := ctxlog.From(ctx)

	var latest *model.Version
	for _, tag := range tags {
		v, ok := model.ParseTag(tag)
		if !ok {
			logger.Debug("ignoring non-release tag", "tag", tag)
			continue
		}
		if latest == nil || latest.Less(v) {
			vv := v
			latest = &vv
		}
	}
	return latest, nil
}

// Next computes the target version for the fragment. When no release exists
// yet the bump applies to the 0.0.0 baseline, so the first feature release
// is 0.1.0 and the first bug release is 0.0.1.
func (uc *versionResolver) Next(latest *model.Version, fragment model.BumpFragment) (model.Version, error) {
	var base model.Version
	if latest != nil {
		base = *latest
	}
	return base.Bump(fragment)
}
