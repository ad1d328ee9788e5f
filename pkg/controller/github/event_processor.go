package github

import (
	"context"
	"errors"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// EventProcessor routes webhook events to the release runner. Only
// repository_dispatch events whose dispatch type is "release" start an
// attempt; everything else is acknowledged and dropped.
type EventProcessor struct {
	starter interfaces.ReleaseStarter
}

// NewEventProcessor creates a new event processor.
func NewEventProcessor(starter interfaces.ReleaseStarter) *EventProcessor {
	return &EventProcessor{
		starter: starter,
	}
}

// Outcome reports what happened to an event.
type Outcome string

const (
	// OutcomeAccepted means a release attempt was started in the background.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeIgnored means the event is not a release trigger.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeBusy means a release attempt is already running.
	OutcomeBusy Outcome = "busy"
)

// ProcessEvent handles one webhook event. The error is non-nil only for
// rejected triggers; OutcomeBusy carries types.ErrReleaseInFlight so callers
// can map it to their own conflict signaling.
func (p *EventProcessor) ProcessEvent(ctx context.Context, event *model.DispatchEvent) (Outcome, error) {
	logger := ctxlog.From(ctx)

	if !event.IsReleaseDispatch() {
		logger.Info("ignoring non-release event",
			"id", event.ID,
			"type", event.Type,
			"action", event.Action,
		)
		return OutcomeIgnored, nil
	}

	fragment, err := model.FragmentFromPayload(event.ClientPayload)
	if err != nil {
		logger.Warn("release dispatch carries an invalid fragment",
			"id", event.ID,
			"error", err,
		)
		return OutcomeIgnored, err
	}

	logger.Info("received release dispatch",
		"id", event.ID,
		"repository", event.Repository,
		"sender", event.Sender,
		"fragment", fragment,
	)

	if err := p.starter.StartRelease(ctx, fragment); err != nil {
		if errors.Is(err, types.ErrReleaseInFlight) {
			logger.Warn("release dispatch rejected, attempt already running", "id", event.ID)
			return OutcomeBusy, err
		}
		return OutcomeIgnored, err
	}
	return OutcomeAccepted, nil
}
