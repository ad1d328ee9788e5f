package github_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	githubcontroller "github.com/m-mizutani/drover/pkg/controller/github"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// MockReleaseStarter is a mock implementation of ReleaseStarter
type MockReleaseStarter struct {
	startReleaseFunc func(ctx context.Context, fragment model.BumpFragment) error
	startCalls       []model.BumpFragment
}

func (m *MockReleaseStarter) StartRelease(ctx context.Context, fragment model.BumpFragment) error {
	m.startCalls = append(m.startCalls, fragment)
	if m.startReleaseFunc != nil {
		return m.startReleaseFunc(ctx, fragment)
	}
	return nil
}

func releaseDispatch(payload string) *model.DispatchEvent {
	return &model.DispatchEvent{
		ID:            "test-delivery",
		Type:          model.EventTypeRepositoryDispatch,
		Action:        model.ReleaseDispatchType,
		Repository:    "m-mizutani/drover",
		Sender:        "testuser",
		ReceivedAt:    time.Now(),
		ClientPayload: []byte(payload),
	}
}

func TestEventProcessor_ReleaseDispatch(t *testing.T) {
	ctx := context.Background()

	// Setup mock starter
	mockStarter := &MockReleaseStarter{}
	processor := githubcontroller.NewEventProcessor(mockStarter)

	outcome, err := processor.ProcessEvent(ctx, releaseDispatch(`{"fragment":"bug"}`))
	gt.NoError(t, err)
	gt.Value(t, outcome).Equal(githubcontroller.OutcomeAccepted)

	// Verify the fragment reached the starter
	gt.Number(t, len(mockStarter.startCalls)).Equal(1)
	gt.Value(t, mockStarter.startCalls[0]).Equal(model.FragmentBug)
}

func TestEventProcessor_EmptyPayloadDefaultsToFeature(t *testing.T) {
	ctx := context.Background()

	mockStarter := &MockReleaseStarter{}
	processor := githubcontroller.NewEventProcessor(mockStarter)

	outcome, err := processor.ProcessEvent(ctx, releaseDispatch(""))
	gt.NoError(t, err)
	gt.Value(t, outcome).Equal(githubcontroller.OutcomeAccepted)

	gt.Number(t, len(mockStarter.startCalls)).Equal(1)
	gt.Value(t, mockStarter.startCalls[0]).Equal(model.FragmentFeature)
}

func TestEventProcessor_InvalidFragment(t *testing.T) {
	ctx := context.Background()

	mockStarter := &MockReleaseStarter{}
	processor := githubcontroller.NewEventProcessor(mockStarter)

	outcome, err := processor.ProcessEvent(ctx, releaseDispatch(`{"fragment":"banana"}`))
	gt.Error(t, err)
	gt.Value(t, outcome).Equal(githubcontroller.OutcomeIgnored)

	// Verify the starter was not called
	gt.Number(t, len(mockStarter.startCalls)).Equal(0)
}

func TestEventProcessor_Busy(t *testing.T) {
	ctx := context.Background()

	// Setup mock starter that rejects the trigger
	mockStarter := &MockReleaseStarter{
		startReleaseFunc: func(ctx context.Context, fragment model.BumpFragment) error {
			return goerr.Wrap(types.ErrReleaseInFlight, "release trigger rejected")
		},
	}
	processor := githubcontroller.NewEventProcessor(mockStarter)

	outcome, err := processor.ProcessEvent(ctx, releaseDispatch(""))
	gt.Error(t, err)
	gt.Value(t, outcome).Equal(githubcontroller.OutcomeBusy)
	gt.True(t, errors.Is(err, types.ErrReleaseInFlight))
}

func TestEventProcessor_NonReleaseEvent(t *testing.T) {
	ctx := context.Background()

	mockStarter := &MockReleaseStarter{}
	processor := githubcontroller.NewEventProcessor(mockStarter)

	events := []*model.DispatchEvent{
		{
			ID:         "push-delivery",
			Type:       model.EventTypeUnknown,
			ReceivedAt: time.Now(),
		},
		{
			ID:         "deploy-delivery",
			Type:       model.EventTypeRepositoryDispatch,
			Action:     "deploy",
			ReceivedAt: time.Now(),
		},
	}

	for _, event := range events {
		outcome, err := processor.ProcessEvent(ctx, event)
		gt.NoError(t, err)
		gt.Value(t, outcome).Equal(githubcontroller.OutcomeIgnored)
	}

	// Verify the starter was not called
	gt.Number(t, len(mockStarter.startCalls)).Equal(0)
}

func TestEventProcessor_StarterFailure(t *testing.T) {
	ctx := context.Background()

	mockStarter := &MockReleaseStarter{
		startReleaseFunc: func(ctx context.Context, fragment model.BumpFragment) error {
			return errors.New("starter broken")
		},
	}
	processor := githubcontroller.NewEventProcessor(mockStarter)

	outcome, err := processor.ProcessEvent(ctx, releaseDispatch(""))
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("starter broken")
	gt.Value(t, outcome).Equal(githubcontroller.OutcomeIgnored)
}
