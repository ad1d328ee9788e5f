package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// SlackNotifier posts release outcomes to an incoming webhook. Failures are
// returned to the caller for logging only; they never affect the release.
type SlackNotifier struct {
	webhookURL string
}

// NewSlack creates a notifier posting to the given incoming webhook URL.
func NewSlack(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL}
}

// NotifyReleased reports a successful release.
func (n *SlackNotifier) NotifyReleased(ctx context.Context, result *model.ReleaseResult) error {
	fields := []slack.AttachmentField{
		{Title: "Version", Value: result.Next.String(), Short: true},
		{Title: "Tag", Value: result.Tag.String(), Short: true},
	}
	if result.Request != nil {
		fields = append(fields, slack.AttachmentField{
			Title: "Request", Value: result.Request.URL,
		})
	}

	return n.post(ctx, &slack.WebhookMessage{
		Text: fmt.Sprintf(":rocket: Released %s", result.Tag),
		Attachments: []slack.Attachment{{
			Color:  "good",
			Fields: fields,
		}},
	})
}

// NotifyAborted reports an aborted release attempt.
func (n *SlackNotifier) NotifyAborted(ctx context.Context, result *model.ReleaseResult) error {
	fields := []slack.AttachmentField{
		{Title: "Reason", Value: string(result.Reason), Short: true},
		{Title: "Phase", Value: string(result.AbortedIn), Short: true},
	}
	if failed := result.Rollup.Failed(); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, c := range failed {
			names = append(names, c.Name)
		}
		fields = append(fields, slack.AttachmentField{
			Title: "Failed checks", Value: strings.Join(names, ", "),
		})
	}
	if result.Request != nil {
		fields = append(fields, slack.AttachmentField{
			Title: "Request", Value: result.Request.URL,
		})
	}

	text := ":warning: Release aborted"
	if result.Next != nil {
		text = fmt.Sprintf(":warning: Release %s aborted", result.Next)
	}

	return n.post(ctx, &slack.WebhookMessage{
		Text: text,
		Attachments: []slack.Attachment{{
			Color:  "danger",
			Fields: fields,
		}},
	})
}

func (n *SlackNotifier) post(ctx context.Context, msg *slack.WebhookMessage) error {
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack notification")
	}
	return nil
}

var _ interfaces.Notifier = (*SlackNotifier)(nil)
