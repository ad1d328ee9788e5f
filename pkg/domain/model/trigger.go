package model

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// DispatchEventType represents the type of webhook event received
type DispatchEventType string

const (
	EventTypeRepositoryDispatch DispatchEventType = "repository_dispatch"
	EventTypeUnknown            DispatchEventType = "unknown"
)

// ReleaseDispatchType is the repository_dispatch event type that triggers a
// release attempt.
const ReleaseDispatchType = "release"

// DispatchEvent represents a webhook event received from GitHub
type DispatchEvent struct {
	ID            string            // Retrieved from X-GitHub-Delivery header
	Type          DispatchEventType // Retrieved from X-GitHub-Event header
	Action        string            // For repository_dispatch this is the dispatched event type
	Repository    string            // Repository full name
	Sender        string            // Sender username
	ReceivedAt    time.Time         // Time when the event was received
	RawPayload    []byte            // Raw JSON payload of the whole event
	ClientPayload []byte            // client_payload of a repository_dispatch event
}

// IsReleaseDispatch checks if the event should start a release attempt
func (e *DispatchEvent) IsReleaseDispatch() bool {
	return e.Type == EventTypeRepositoryDispatch && e.Action == ReleaseDispatchType
}

// DispatchPayload is the client payload of a release dispatch event.
type DispatchPayload struct {
	Fragment string `json:"fragment"`
}

// FragmentFromPayload extracts and validates the bump fragment from a release
// dispatch client payload. A missing fragment defaults to feature, mirroring
// the workflow input default.
func FragmentFromPayload(clientPayload []byte) (BumpFragment, error) {
	if len(clientPayload) == 0 {
		return FragmentFeature, nil
	}

	var payload DispatchPayload
	if err := json.Unmarshal(clientPayload, &payload); err != nil {
		return "", goerr.Wrap(err, "failed to unmarshal dispatch client payload",
			goerr.T(types.TagInvalidFragment),
		)
	}

	if payload.Fragment == "" {
		return FragmentFeature, nil
	}

	return ParseFragment(payload.Fragment)
}
