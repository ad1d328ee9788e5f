package types_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestAbortReasonOf(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason types.AbortReason
	}{
		{
			name:   "nil",
			err:    nil,
			reason: types.ReasonNone,
		},
		{
			name:   "invalid fragment",
			err:    goerr.New("bad fragment", goerr.T(types.TagInvalidFragment)),
			reason: types.ReasonInvalidFragment,
		},
		{
			name:   "build failed",
			err:    goerr.New("build exploded", goerr.T(types.TagBuildFailed)),
			reason: types.ReasonBuildOrPushFailed,
		},
		{
			name:   "push rejected",
			err:    goerr.New("remote said no", goerr.T(types.TagPushRejected)),
			reason: types.ReasonBuildOrPushFailed,
		},
		{
			name:   "request already open",
			err:    goerr.Wrap(types.ErrRequestAlreadyExists, "dup"),
			reason: types.ReasonRequestAlreadyOpen,
		},
		{
			name:   "checks failed",
			err:    goerr.New("red checks", goerr.T(types.TagChecksFailed)),
			reason: types.ReasonChecksFailed,
		},
		{
			name:   "tag push failed",
			err:    goerr.New("tag refused", goerr.T(types.TagTagPushFailed)),
			reason: types.ReasonTagPushFailed,
		},
		{
			name:   "tagged timeout",
			err:    goerr.New("gave up", goerr.T(types.TagTimeout)),
			reason: types.ReasonTimeoutOrCancelled,
		},
		{
			name:   "deadline exceeded",
			err:    goerr.Wrap(context.DeadlineExceeded, "poll loop"),
			reason: types.ReasonTimeoutOrCancelled,
		},
		{
			name:   "cancelled",
			err:    goerr.Wrap(context.Canceled, "operator stop"),
			reason: types.ReasonTimeoutOrCancelled,
		},
		{
			name:   "unclassified",
			err:    errors.New("mystery"),
			reason: types.ReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, types.AbortReasonOf(tc.err), tc.reason)
		})
	}
}

func TestWrapKeepsTag(t *testing.T) {
	// Classification must survive wrapping at higher layers.
	inner := goerr.New("push rejected", goerr.T(types.TagPushRejected))
	outer := goerr.Wrap(inner, "release branch publication failed")

	gt.Equal(t, types.AbortReasonOf(outer), types.ReasonBuildOrPushFailed)
}

func TestIsExpectedAbort(t *testing.T) {
	gt.True(t, types.IsExpectedAbort(goerr.Wrap(types.ErrRequestAlreadyExists, "dup")))
	gt.True(t, types.IsExpectedAbort(goerr.New("other", goerr.T(types.TagChecksFailed))) == false)
	gt.True(t, types.IsExpectedAbort(nil) == false)
}

func TestCommitSHAShort(t *testing.T) {
	sha := types.CommitSHA("0123456789abcdef0123456789abcdef01234567")
	gt.Equal(t, sha.Short(), "0123456")
	gt.Equal(t, types.CommitSHA("ab").Short(), "ab")
}
