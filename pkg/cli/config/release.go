package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// Release holds release orchestration configuration. Flags without built-in
// defaults stay empty here so that values from the settings file can fill
// them in; ApplyFile resolves the final values.
type Release struct {
	Trunk        string
	Remote       string
	Dir          string
	BuildCommand string
	PollInterval time.Duration
	Timeout      time.Duration
	BodyFile     string
	GitUserName  string
	GitUserEmail string
	ConfigPath   string
}

// Flags returns CLI flags for release configuration
func (c *Release) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "trunk",
			Usage:       "Trunk branch that releases start from and merge back into",
			Destination: &c.Trunk,
			Sources:     cli.EnvVars("DROVER_TRUNK", "GITHUB_REF_NAME"),
		},
		&cli.StringFlag{
			Name:        "remote",
			Usage:       "Git remote name",
			Destination: &c.Remote,
			Sources:     cli.EnvVars("DROVER_REMOTE"),
		},
		&cli.StringFlag{
			Name:        "dir",
			Usage:       "Working copy directory",
			Value:       ".",
			Destination: &c.Dir,
			Sources:     cli.EnvVars("DROVER_DIR"),
		},
		&cli.StringFlag{
			Name:        "build-cmd",
			Usage:       "Build step command run before committing the version bump",
			Destination: &c.BuildCommand,
			Sources:     cli.EnvVars("DROVER_BUILD_CMD"),
		},
		&cli.DurationFlag{
			Name:        "poll-interval",
			Usage:       "Interval between status check polls",
			Destination: &c.PollInterval,
			Sources:     cli.EnvVars("DROVER_POLL_INTERVAL"),
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Overall release attempt timeout (0 disables)",
			Destination: &c.Timeout,
			Sources:     cli.EnvVars("DROVER_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:        "body-file",
			Usage:       "Path to a file replacing the built-in request body text",
			Destination: &c.BodyFile,
			Sources:     cli.EnvVars("DROVER_BODY_FILE"),
		},
		&cli.StringFlag{
			Name:        "git-user-name",
			Usage:       "Committer name for the version bump commit",
			Value:       "drover[bot]",
			Destination: &c.GitUserName,
			Sources:     cli.EnvVars("DROVER_GIT_USER_NAME"),
		},
		&cli.StringFlag{
			Name:        "git-user-email",
			Usage:       "Committer email for the version bump commit",
			Value:       "drover[bot]@users.noreply.github.com",
			Destination: &c.GitUserEmail,
			Sources:     cli.EnvVars("DROVER_GIT_USER_EMAIL"),
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to the settings file",
			Value:       "drover.toml",
			Destination: &c.ConfigPath,
			Sources:     cli.EnvVars("DROVER_CONFIG"),
		},
	}
}
