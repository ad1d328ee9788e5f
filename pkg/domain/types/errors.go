package types

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// Error tags classify where a release attempt failed. Every abort carries
// exactly one of these in its chain; AbortReasonOf maps the chain back to the
// user-visible reason.
var (
	TagInvalidFragment = goerr.NewTag("invalid_fragment")
	TagBuildFailed     = goerr.NewTag("build_failed")
	TagPushRejected    = goerr.NewTag("push_rejected")
	TagRequestOpen     = goerr.NewTag("request_already_open")
	TagChecksFailed    = goerr.NewTag("checks_failed")
	TagTagPushFailed   = goerr.NewTag("tag_push_failed")
	TagTimeout         = goerr.NewTag("timeout_or_cancelled")
)

// Sentinel errors shared across layers.
var (
	// ErrRequestAlreadyExists is returned by the gateway when the platform
	// reports a duplicate request at creation time.
	ErrRequestAlreadyExists = goerr.New("a release request for this branch already exists", goerr.T(TagRequestOpen))

	// ErrReleaseInFlight is returned when another release attempt holds the
	// single-flight slot of this process.
	ErrReleaseInFlight = goerr.New("another release attempt is already running")
)

// AbortReason is the user-visible classification of a failed release attempt.
type AbortReason string

const (
	ReasonNone               AbortReason = ""
	ReasonInvalidFragment    AbortReason = "InvalidFragment"
	ReasonBuildOrPushFailed  AbortReason = "BuildOrPushFailed"
	ReasonRequestAlreadyOpen AbortReason = "RequestAlreadyOpen"
	ReasonChecksFailed       AbortReason = "ChecksFailed"
	ReasonTagPushFailed      AbortReason = "TagPushFailed"
	ReasonTimeoutOrCancelled AbortReason = "TimeoutOrCancelled"
	ReasonUnknown            AbortReason = "Unknown"
)

// AbortReasonOf classifies an error chain into an AbortReason.
func AbortReasonOf(err error) AbortReason {
	switch {
	case err == nil:
		return ReasonNone
	case goerr.HasTag(err, TagInvalidFragment):
		return ReasonInvalidFragment
	case goerr.HasTag(err, TagRequestOpen):
		return ReasonRequestAlreadyOpen
	case goerr.HasTag(err, TagBuildFailed), goerr.HasTag(err, TagPushRejected):
		return ReasonBuildOrPushFailed
	case goerr.HasTag(err, TagChecksFailed):
		return ReasonChecksFailed
	case goerr.HasTag(err, TagTagPushFailed):
		return ReasonTagPushFailed
	case goerr.HasTag(err, TagTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ReasonTimeoutOrCancelled
	default:
		return ReasonUnknown
	}
}

// IsExpectedAbort reports whether the abort is the benign "an identical
// release is already in progress" outcome rather than a true failure.
func IsExpectedAbort(err error) bool {
	return AbortReasonOf(err) == ReasonRequestAlreadyOpen
}
