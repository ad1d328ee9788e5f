package config

import "github.com/urfave/cli/v3"

// Slack holds Slack notification configuration
type Slack struct {
	WebhookURL string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook",
			Usage:       "Slack incoming webhook URL for release notifications",
			Destination: &c.WebhookURL,
			Sources:     cli.EnvVars("DROVER_SLACK_WEBHOOK"),
		},
	}
}

// Configured reports whether notifications are enabled
func (c *Slack) Configured() bool {
	return c.WebhookURL != ""
}
