package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/cli/config"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func cmdRelease() *cli.Command {
	var (
		githubCfg  config.GitHub
		releaseCfg config.Release
		sentryCfg  config.Sentry
		slackCfg   config.Slack
		fragment   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "fragment",
			Aliases:     []string{"f"},
			Usage:       "Version fragment to bump (feature or bug)",
			Value:       "feature",
			Destination: &fragment,
			Sources:     cli.EnvVars("DROVER_FRAGMENT"),
		},
	}
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, releaseCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "release",
		Aliases: []string{"r"},
		Usage:   "Run one release attempt from the trunk branch",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			frag, err := model.ParseFragment(fragment)
			if err != nil {
				return err
			}

			flush, err := sentryCfg.Configure()
			if err != nil {
				return err
			}
			defer flush()

			releaser, err := newReleaser(ctx, &githubCfg, &releaseCfg, &slackCfg)
			if err != nil {
				return err
			}

			if releaseCfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, releaseCfg.Timeout)
				defer cancel()
			}

			logger.Info("Starting release attempt",
				"repository", githubCfg.Repository,
				"trunk", releaseCfg.Trunk,
				"fragment", frag,
			)

			result, err := releaser.Release(ctx, frag)
			switch {
			case err == nil:
				color.New(color.FgGreen).Printf("released %s (request #%d)\n",
					result.Tag, result.Request.Number)
				return nil

			case types.IsExpectedAbort(err):
				// An identical release is already in flight. Reported apart
				// from true failures, but the attempt still did not release.
				color.New(color.FgYellow).Printf("release %s already in progress, nothing to do\n",
					nextLabel(result))
				return err

			default:
				sentry.CaptureException(err)
				color.New(color.FgRed).Printf("release aborted in %s: %s\n",
					result.AbortedIn, result.Reason)
				return err
			}
		},
	}
}

func nextLabel(result *model.ReleaseResult) string {
	if result == nil || result.Next == nil {
		return "attempt"
	}
	return result.Next.String()
}
