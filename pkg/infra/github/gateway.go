package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type gateway struct {
	gh        *github.Client
	owner     string
	repo      string
	transport http.RoundTripper
	token     string
	baseURL   string
}

// Option configures the gateway.
type Option func(*gateway)

// WithTransport authenticates API calls through the given round tripper,
// typically a GitHub App installation transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(x *gateway) {
		x.transport = rt
	}
}

// WithToken authenticates API calls with a fixed bearer token.
func WithToken(token string) Option {
	return func(x *gateway) {
		x.token = token
	}
}

// WithBaseURL points API calls at a GitHub Enterprise host or a test server.
func WithBaseURL(baseURL string) Option {
	return func(x *gateway) {
		x.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// New creates a pull request gateway for owner/repo.
func New(owner, repo string, opts ...Option) (interfaces.RequestGateway, error) {
	if owner == "" || repo == "" {
		return nil, goerr.New("repository owner and name are required")
	}

	x := &gateway{
		owner: owner,
		repo:  repo,
	}
	for _, opt := range opts {
		opt(x)
	}

	httpClient := http.DefaultClient
	if x.transport != nil {
		httpClient = &http.Client{Transport: x.transport}
	}
	gh := github.NewClient(httpClient)
	if x.token != "" {
		gh = gh.WithAuthToken(x.token)
	}
	if x.baseURL != "" {
		base, err := url.Parse(x.baseURL + "/")
		if err != nil {
			return nil, goerr.Wrap(err, "invalid github base URL", goerr.V("base_url", x.baseURL))
		}
		gh.BaseURL = base
	}
	x.gh = gh

	return x, nil
}

// FindOpen returns the open pull request whose head is exactly sourceBranch,
// or nil when none exists.
func (x *gateway) FindOpen(ctx context.Context, sourceBranch types.BranchName) (*model.ReleaseRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		Head:        x.owner + ":" + sourceBranch.String(),
		ListOptions: github.ListOptions{PerPage: 10},
	}

	prs, _, err := x.gh.PullRequests.List(ctx, x.owner, x.repo, opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list pull requests", goerr.V("head", opts.Head))
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return toRequest(prs[0]), nil
}

// Create opens a new pull request. When the platform reports that one
// already exists for the branch pair, the error wraps
// types.ErrRequestAlreadyExists.
func (x *gateway) Create(ctx context.Context, input *model.RequestInput) (*model.ReleaseRequest, error) {
	pr, _, err := x.gh.PullRequests.Create(ctx, x.owner, x.repo, &github.NewPullRequest{
		Title: github.Ptr(input.Title),
		Head:  github.Ptr(input.SourceBranch.String()),
		Base:  github.Ptr(input.TargetBranch.String()),
		Body:  github.Ptr(input.Body),
	})
	if err != nil {
		if isAlreadyExists(err) {
			return nil, goerr.Wrap(types.ErrRequestAlreadyExists, "pull request already open",
				goerr.V("head", input.SourceBranch),
				goerr.V("base", input.TargetBranch),
			)
		}
		return nil, goerr.Wrap(err, "failed to create pull request",
			goerr.V("head", input.SourceBranch),
			goerr.V("base", input.TargetBranch),
		)
	}

	ctxlog.From(ctx).Info("created pull request",
		"number", pr.GetNumber(),
		"url", pr.GetHTMLURL(),
	)
	return toRequest(pr), nil
}

// Rollup reads one snapshot of the checks attached to the request's current
// head commit. Commit statuses and check runs are merged into a single
// list, mapped onto the status state vocabulary and sorted by name.
func (x *gateway) Rollup(ctx context.Context, number types.RequestNumber) (model.CheckRollup, error) {
	pr, _, err := x.gh.PullRequests.Get(ctx, x.owner, x.repo, int(number))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get pull request", goerr.V("number", number))
	}
	sha := pr.GetHead().GetSHA()
	if sha == "" {
		return nil, goerr.New("pull request has no head commit", goerr.V("number", number))
	}

	var rollup model.CheckRollup

	statuses, err := x.listStatuses(ctx, sha)
	if err != nil {
		return nil, err
	}
	for _, s := range statuses {
		rollup = append(rollup, model.CheckResult{
			Name:  s.GetContext(),
			State: model.CheckState(s.GetState()),
			URL:   s.GetTargetURL(),
		})
	}

	runs, err := x.listCheckRuns(ctx, sha)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		rollup = append(rollup, model.CheckResult{
			Name:  run.GetName(),
			State: checkRunState(run),
			URL:   run.GetHTMLURL(),
		})
	}

	sort.Slice(rollup, func(i, j int) bool {
		if rollup[i].Name != rollup[j].Name {
			return rollup[i].Name < rollup[j].Name
		}
		return rollup[i].State < rollup[j].State
	})
	return rollup, nil
}

// AwaitRollupPopulated polls until at least one check is reported for the
// request. The interval is fixed; the wait ends only through ctx.
func (x *gateway) AwaitRollupPopulated(ctx context.Context, number types.RequestNumber, interval time.Duration) (model.CheckRollup, error) {
	return x.await(ctx, number, interval, "waiting for checks to be reported", func(r model.CheckRollup) bool {
		return len(r) > 0
	})
}

// AwaitAllTerminal polls until every reported check has finished, then
// returns the final rollup.
func (x *gateway) AwaitAllTerminal(ctx context.Context, number types.RequestNumber, interval time.Duration) (model.CheckRollup, error) {
	return x.await(ctx, number, interval, "waiting for checks to finish", func(r model.CheckRollup) bool {
		return len(r) > 0 && r.AllTerminal()
	})
}

func (x *gateway) await(ctx context.Context, number types.RequestNumber, interval time.Duration, what string, done func(model.CheckRollup) bool) (model.CheckRollup, error) {
	logger := ctxlog.From(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		rollup, err := x.Rollup(ctx, number)
		if err != nil {
			return nil, err
		}
		if done(rollup) {
			return rollup, nil
		}

		logger.Debug(what,
			"number", number,
			"attempt", attempt,
			"checks", len(rollup),
			"interval", interval,
		)

		select {
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "gave up "+what,
				goerr.V("number", number),
				goerr.V("attempt", attempt),
				goerr.T(types.TagTimeout),
			)
		case <-ticker.C:
		}
	}
}

func (x *gateway) listStatuses(ctx context.Context, sha string) ([]*github.RepoStatus, error) {
	var all []*github.RepoStatus
	opts := &github.ListOptions{PerPage: 100}
	for {
		combined, resp, err := x.gh.Repositories.GetCombinedStatus(ctx, x.owner, x.repo, sha, opts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get combined status", goerr.V("sha", sha))
		}
		all = append(all, combined.Statuses...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func (x *gateway) listCheckRuns(ctx context.Context, sha string) ([]*github.CheckRun, error) {
	var all []*github.CheckRun
	opts := &github.ListCheckRunsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		results, resp, err := x.gh.Checks.ListCheckRunsForRef(ctx, x.owner, x.repo, sha, opts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list check runs", goerr.V("sha", sha))
		}
		all = append(all, results.CheckRuns...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// checkRunState maps a check run onto the commit status vocabulary. Runs
// that have not completed are pending; completed runs fold their conclusion
// into success, failure or error.
func checkRunState(run *github.CheckRun) model.CheckState {
	if run.GetStatus() != "completed" {
		return model.CheckPending
	}
	switch run.GetConclusion() {
	case "success", "neutral", "skipped":
		return model.CheckSuccess
	case "failure":
		return model.CheckFailure
	default:
		// timed_out, cancelled, action_required, stale, startup_failure
		return model.CheckError
	}
}

func toRequest(pr *github.PullRequest) *model.ReleaseRequest {
	return &model.ReleaseRequest{
		Number:       types.RequestNumber(pr.GetNumber()),
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		SourceBranch: types.BranchName(pr.GetHead().GetRef()),
		TargetBranch: types.BranchName(pr.GetBase().GetRef()),
		HeadSHA:      types.CommitSHA(pr.GetHead().GetSHA()),
		URL:          pr.GetHTMLURL(),
	}
}

// isAlreadyExists detects the platform refusing a duplicate pull request.
func isAlreadyExists(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	if ghErr.Response == nil || ghErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	for _, e := range ghErr.Errors {
		if strings.Contains(e.Message, "already exists") {
			return true
		}
	}
	return false
}
