package usecase

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed templates/request_body.md
var defaultRequestBody string

const defaultPollInterval = 30 * time.Second

type releaseUseCase struct {
	repo    interfaces.GitRepo
	gateway interfaces.RequestGateway

	resolver *versionResolver
	branches *branchBuilder

	trunk        types.BranchName
	pollInterval time.Duration
	requestBody  string
	notifiers    []interfaces.Notifier
}

// ReleaseOption configures the release use case.
type ReleaseOption func(*releaseUseCase)

// WithTrunk sets the trunk branch releases merge into (default "main").
func WithTrunk(branch types.BranchName) ReleaseOption {
	return func(uc *releaseUseCase) {
		uc.trunk = branch
	}
}

// WithPollInterval sets the fixed interval between check polls.
func WithPollInterval(d time.Duration) ReleaseOption {
	return func(uc *releaseUseCase) {
		if d > 0 {
			uc.pollInterval = d
		}
	}
}

// WithNotifier adds an outcome notifier. Notification failures are logged
// and otherwise ignored.
func WithNotifier(n interfaces.Notifier) ReleaseOption {
	return func(uc *releaseUseCase) {
		uc.notifiers = append(uc.notifiers, n)
	}
}

// WithRequestBody overrides the request body text. The body is passed to the
// platform verbatim; the request title is the only string the orchestrator
// formats with the version.
func WithRequestBody(body string) ReleaseOption {
	return func(uc *releaseUseCase) {
		uc.requestBody = body
	}
}

// NewRelease creates the release orchestrator. One call to Release drives a
// single attempt through its phases in order; the remote repository and its
// hosting platform carry all durable state, so a crashed attempt is resumed
// by simply triggering a new one.
func NewRelease(repo interfaces.GitRepo, build interfaces.BuildRunner, gateway interfaces.RequestGateway, opts ...ReleaseOption) interfaces.Releaser {
	uc := &releaseUseCase{
		repo:         repo,
		gateway:      gateway,
		resolver:     NewVersionResolver(repo),
		branches:     NewBranchBuilder(repo, build),
		trunk:        types.BranchName("main"),
		pollInterval: defaultPollInterval,
		requestBody:  defaultRequestBody,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Release runs one release attempt for the fragment. The returned result is
// non-nil even on failure and records the terminal phase, the abort reason
// and everything learned along the way. The error is nil only when the
// attempt reached the tagged state.
func (uc *releaseUseCase) Release(ctx context.Context, fragment model.BumpFragment) (*model.ReleaseResult, error) {
	attemptID := types.AttemptID(uuid.NewString())
	logger := ctxlog.From(ctx).With("attempt_id", attemptID)
	ctx = ctxlog.With(ctx, logger)

	result := &model.ReleaseResult{
		AttemptID: attemptID,
		Fragment:  fragment,
		Phase:     model.PhaseInit,
	}

	logger.Info("starting release attempt", "fragment", fragment)

	if err := uc.run(ctx, fragment, result); err != nil {
		result.AbortedIn = result.Phase
		result.Phase = model.PhaseAborted
		result.Reason = types.AbortReasonOf(err)

		if types.IsExpectedAbort(err) {
			logger.Warn("release already in progress, nothing to do",
				"phase", result.AbortedIn,
			)
		} else {
			logger.Error("release attempt aborted",
				"reason", result.Reason,
				"phase", result.AbortedIn,
				"error", err,
			)
		}

		uc.notify(ctx, result)
		return result, err
	}

	logger.Info("release completed",
		"tag", result.Tag,
		"version", result.Next,
	)
	uc.notify(ctx, result)
	return result, nil
}

// run drives the phases in their fixed order. Each step advances
// result.Phase only after its transition fully succeeded, so on failure the
// result still names the last phase reached.
func (uc *releaseUseCase) run(ctx context.Context, fragment model.BumpFragment, result *model.ReleaseResult) error {
	next, err := uc.computeVersion(ctx, fragment, result)
	if err != nil {
		return err
	}

	if err := uc.guardNoOpenRequest(ctx, result); err != nil {
		return err
	}

	bumpSHA, err := uc.buildBranch(ctx, next, result)
	if err != nil {
		return err
	}

	if err := uc.openRequest(ctx, next, result); err != nil {
		return err
	}

	if err := uc.awaitChecks(ctx, result); err != nil {
		return err
	}

	return uc.tagRelease(ctx, next, bumpSHA, result)
}

func (uc *releaseUseCase) computeVersion(ctx context.Context, fragment model.BumpFragment, result *model.ReleaseResult) (model.Version, error) {
	latest, err := uc.resolver.Latest(ctx)
	if err != nil {
		return model.Version{}, err
	}

	next, err := uc.resolver.Next(latest, fragment)
	if err != nil {
		return model.Version{}, err
	}

	result.Previous = latest
	result.Next = &next
	result.Branch = next.BranchName()
	result.Phase = model.PhaseVersionComputed

	ctxlog.From(ctx).Info("computed release version",
		"previous", versionLabel(latest),
		"next", next,
		"fragment", fragment,
	)
	return next, nil
}

// guardNoOpenRequest stops the attempt before any branch work when a live
// release request for the target branch already exists. The check is a
// best-effort read; the request creation step repeats it authoritatively.
func (uc *releaseUseCase) guardNoOpenRequest(ctx context.Context, result *model.ReleaseResult) error {
	open, err := uc.gateway.FindOpen(ctx, result.Branch)
	if err != nil {
		return err
	}
	if open != nil {
		result.Request = open
		return goerr.Wrap(types.ErrRequestAlreadyExists, "release request already open",
			goerr.V("number", open.Number),
			goerr.V("url", open.URL),
		)
	}
	return nil
}

func (uc *releaseUseCase) buildBranch(ctx context.Context, next model.Version, result *model.ReleaseResult) (types.CommitSHA, error) {
	sha, err := uc.branches.CreateAndPush(ctx, next)
	if err != nil {
		return "", err
	}
	result.Phase = model.PhaseBranchPushed
	return sha, nil
}

func (uc *releaseUseCase) openRequest(ctx context.Context, next model.Version, result *model.ReleaseResult) error {
	// The early guard ran before the build step, but the build and push take
	// long enough for another attempt to slip in. Re-read right before
	// creating; a conflict reported by the create itself covers the
	// remaining window.
	if err := uc.guardNoOpenRequest(ctx, result); err != nil {
		return err
	}

	req, err := uc.gateway.Create(ctx, &model.RequestInput{
		SourceBranch: result.Branch,
		TargetBranch: uc.trunk,
		Title:        fmt.Sprintf("Release Version %s", next),
		Body:         uc.requestBody,
	})
	if err != nil {
		return err
	}

	result.Request = req
	result.Phase = model.PhaseRequestOpen

	ctxlog.From(ctx).Info("opened release request",
		"number", req.Number,
		"url", req.URL,
	)
	return nil
}

func (uc *releaseUseCase) awaitChecks(ctx context.Context, result *model.ReleaseResult) error {
	logger := ctxlog.From(ctx)

	rollup, err := uc.gateway.AwaitRollupPopulated(ctx, result.Request.Number, uc.pollInterval)
	if err != nil {
		return err
	}
	result.Rollup = rollup
	result.Phase = model.PhaseChecksRegistered
	logger.Info("status checks registered",
		"count", len(rollup),
		"checks", rollup.Names(),
	)

	rollup, err = uc.gateway.AwaitAllTerminal(ctx, result.Request.Number, uc.pollInterval)
	if err != nil {
		return err
	}
	result.Rollup = rollup
	result.Phase = model.PhaseChecksComplete

	if !rollup.AllSuccess() {
		var failed []string
		for _, c := range rollup.Failed() {
			failed = append(failed, fmt.Sprintf("%s=%s", c.Name, c.State))
		}
		return goerr.New("status checks did not all succeed",
			goerr.V("failed", failed),
			goerr.T(types.TagChecksFailed),
		)
	}

	logger.Info("all status checks succeeded", "count", len(rollup))
	return nil
}

func (uc *releaseUseCase) tagRelease(ctx context.Context, next model.Version, bumpSHA types.CommitSHA, result *model.ReleaseResult) error {
	tag := next.TagName()

	if err := uc.repo.CreateTag(ctx, tag, fmt.Sprintf("Release %s", next), bumpSHA); err != nil {
		return goerr.Wrap(err, "failed to create release tag",
			goerr.V("tag", tag),
			goerr.T(types.TagTagPushFailed),
		)
	}
	if err := uc.repo.PushTag(ctx, tag); err != nil {
		return goerr.Wrap(err, "failed to push release tag",
			goerr.V("tag", tag),
			goerr.T(types.TagTagPushFailed),
		)
	}

	result.Tag = tag
	result.Phase = model.PhaseTagged
	return nil
}

// notify reports the terminal result to every configured notifier.
func (uc *releaseUseCase) notify(ctx context.Context, result *model.ReleaseResult) {
	logger := ctxlog.From(ctx)
	for _, n := range uc.notifiers {
		var err error
		if result.Released() {
			err = n.NotifyReleased(ctx, result)
		} else {
			err = n.NotifyAborted(ctx, result)
		}
		if err != nil {
			logger.Warn("failed to send release notification", "error", err)
		}
	}
}

func versionLabel(v *model.Version) string {
	if v == nil {
		return "none"
	}
	return v.String()
}
