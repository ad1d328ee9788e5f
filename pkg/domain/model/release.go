package model

import "github.com/m-mizutani/drover/pkg/domain/types"

// ReleaseRequest represents a review request proposing to merge the release
// branch into trunk. At most one live request may exist per source branch.
type ReleaseRequest struct {
	Number       types.RequestNumber
	Title        string
	Body         string
	SourceBranch types.BranchName
	TargetBranch types.BranchName
	HeadSHA      types.CommitSHA
	URL          string
}

// RequestInput carries the parameters for creating a ReleaseRequest.
type RequestInput struct {
	SourceBranch types.BranchName
	TargetBranch types.BranchName
	Title        string
	Body         string
}

// CheckState is the state of a single status check. The vocabulary matches
// the platform's commit status states; check runs are mapped onto it.
type CheckState string

const (
	CheckPending CheckState = "pending"
	CheckSuccess CheckState = "success"
	CheckFailure CheckState = "failure"
	CheckError   CheckState = "error"
)

// Terminal reports whether the state will not change further.
func (s CheckState) Terminal() bool {
	switch s {
	case CheckSuccess, CheckFailure, CheckError:
		return true
	default:
		return false
	}
}

// CheckResult is one named check attached to a request's head commit.
type CheckResult struct {
	Name  string
	State CheckState
	URL   string
}

// CheckRollup is the ordered set of check results for a request's head
// commit. It is empty right after request creation; the platform populates
// it asynchronously.
type CheckRollup []CheckResult

// AllTerminal reports whether every check has reached a terminal state.
// An empty rollup is vacuously terminal; callers that need a populated
// rollup must wait for one first.
func (r CheckRollup) AllTerminal() bool {
	for _, c := range r {
		if !c.State.Terminal() {
			return false
		}
	}
	return true
}

// AllSuccess reports whether the rollup is non-empty and every check
// succeeded. This is the overall success classification for a release.
func (r CheckRollup) AllSuccess() bool {
	if len(r) == 0 {
		return false
	}
	for _, c := range r {
		if c.State != CheckSuccess {
			return false
		}
	}
	return true
}

// Failed returns the checks in failure or error state.
func (r CheckRollup) Failed() []CheckResult {
	var failed []CheckResult
	for _, c := range r {
		if c.State == CheckFailure || c.State == CheckError {
			failed = append(failed, c)
		}
	}
	return failed
}

// Names returns the check names in rollup order.
func (r CheckRollup) Names() []string {
	names := make([]string, 0, len(r))
	for _, c := range r {
		names = append(names, c.Name)
	}
	return names
}
