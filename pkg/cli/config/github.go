package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub credentials and target repository configuration.
// Either a plain token or App credentials (app ID + private key) must be
// configured; the token wins when both are present.
type GitHub struct {
	AppID          string
	InstallationID string
	PrivateKeyPath string
	Token          string
	WebhookSecret  string
	Repository     string
	BaseURL        string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("DROVER_GITHUB_APP_ID"),
		},
		&cli.StringFlag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID (discovered from the repository when omitted)",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("DROVER_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "Path to the GitHub App private key (PEM)",
			Destination: &c.PrivateKeyPath,
			Sources:     cli.EnvVars("DROVER_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "Personal or Actions token, used instead of App credentials when set",
			Destination: &c.Token,
			Sources:     cli.EnvVars("DROVER_GITHUB_TOKEN", "GITHUB_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret for serve mode",
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("DROVER_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.StringFlag{
			Name:        "repository",
			Usage:       "Target repository as owner/name",
			Destination: &c.Repository,
			Sources:     cli.EnvVars("DROVER_REPOSITORY", "GITHUB_REPOSITORY"),
		},
		&cli.StringFlag{
			Name:        "github-base-url",
			Usage:       "GitHub API base URL (for GitHub Enterprise)",
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("DROVER_GITHUB_BASE_URL"),
		},
	}
}

// OwnerRepo splits the owner/name repository reference.
func (c *GitHub) OwnerRepo() (string, string, error) {
	owner, repo, ok := strings.Cut(c.Repository, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", goerr.New("repository must be of the form owner/name",
			goerr.V("repository", c.Repository),
		)
	}
	return owner, repo, nil
}

// ParseAppID parses the configured App ID.
func (c *GitHub) ParseAppID() (int64, error) {
	id, err := strconv.ParseInt(c.AppID, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid GitHub App ID", goerr.V("app_id", c.AppID))
	}
	return id, nil
}

// ParseInstallationID parses the configured installation ID. Zero means not
// configured; the installation is then discovered through the API.
func (c *GitHub) ParseInstallationID() (int64, error) {
	if c.InstallationID == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(c.InstallationID, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid GitHub App installation ID",
			goerr.V("installation_id", c.InstallationID),
		)
	}
	return id, nil
}

// PrivateKey reads the configured PEM private key file.
func (c *GitHub) PrivateKey() ([]byte, error) {
	if c.PrivateKeyPath == "" {
		return nil, goerr.New("github-private-key is required for App authentication")
	}
	raw, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read GitHub App private key",
			goerr.V("path", c.PrivateKeyPath),
		)
	}
	return raw, nil
}
