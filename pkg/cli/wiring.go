package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/drover/pkg/cli/config"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/infra/build"
	"github.com/m-mizutani/drover/pkg/infra/github"
	"github.com/m-mizutani/drover/pkg/infra/githubapp"
	"github.com/m-mizutani/drover/pkg/infra/gitx"
	"github.com/m-mizutani/drover/pkg/infra/notify"
	"github.com/m-mizutani/drover/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
)

// newReleaser wires the infrastructure and the release use case from CLI
// configuration. Both the release and serve commands go through here.
func newReleaser(
	ctx context.Context,
	githubCfg *config.GitHub,
	releaseCfg *config.Release,
	slackCfg *config.Slack,
) (interfaces.Releaser, error) {
	file, err := config.LoadFile(releaseCfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := releaseCfg.ApplyFile(file); err != nil {
		return nil, err
	}

	owner, repoName, err := githubCfg.OwnerRepo()
	if err != nil {
		return nil, err
	}

	var (
		tokenSource interfaces.TokenSource
		gatewayOpts []github.Option
	)
	switch {
	case githubCfg.Token != "":
		tokenSource = githubapp.StaticToken(githubCfg.Token)
		gatewayOpts = append(gatewayOpts, github.WithToken(githubCfg.Token))

	case githubCfg.AppID != "":
		appID, err := githubCfg.ParseAppID()
		if err != nil {
			return nil, err
		}
		instID, err := githubCfg.ParseInstallationID()
		if err != nil {
			return nil, err
		}
		key, err := githubCfg.PrivateKey()
		if err != nil {
			return nil, err
		}

		var appOpts []githubapp.Option
		if instID != 0 {
			appOpts = append(appOpts, githubapp.WithInstallationID(instID))
		}
		if githubCfg.BaseURL != "" {
			appOpts = append(appOpts, githubapp.WithBaseURL(githubCfg.BaseURL))
		}

		app, err := githubapp.New(ctx, appID, key, owner, repoName, appOpts...)
		if err != nil {
			return nil, err
		}
		tokenSource = app
		gatewayOpts = append(gatewayOpts, github.WithTransport(app.Transport()))

	default:
		return nil, goerr.New("GitHub credentials are required, set either github-token or github-app-id with github-private-key")
	}

	if githubCfg.BaseURL != "" {
		gatewayOpts = append(gatewayOpts, github.WithBaseURL(githubCfg.BaseURL))
	}

	gateway, err := github.New(owner, repoName, gatewayOpts...)
	if err != nil {
		return nil, err
	}

	repo := gitx.New(releaseCfg.Dir,
		gitx.WithRemote(releaseCfg.Remote),
		gitx.WithIdentity(releaseCfg.GitUserName, releaseCfg.GitUserEmail),
		gitx.WithTokenSource(tokenSource),
	)

	builder := build.New(releaseCfg.BuildCommand, releaseCfg.Dir)

	releaseOpts := []usecase.ReleaseOption{
		usecase.WithTrunk(types.BranchName(releaseCfg.Trunk)),
		usecase.WithPollInterval(releaseCfg.PollInterval),
	}
	if releaseCfg.BodyFile != "" {
		body, err := os.ReadFile(releaseCfg.BodyFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read request body file",
				goerr.V("path", releaseCfg.BodyFile),
			)
		}
		releaseOpts = append(releaseOpts, usecase.WithRequestBody(string(body)))
	}
	if slackCfg.Configured() {
		releaseOpts = append(releaseOpts, usecase.WithNotifier(notify.NewSlack(slackCfg.WebhookURL)))
	}

	return usecase.NewRelease(repo, builder, gateway, releaseOpts...), nil
}
