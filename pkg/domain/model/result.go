package model

import "github.com/m-mizutani/drover/pkg/domain/types"

// Phase is a state of the release orchestration state machine. The machine is
// strictly linear: each phase is reached at most once per attempt, in the
// order the constants are declared.
type Phase string

const (
	PhaseInit             Phase = "init"
	PhaseVersionComputed  Phase = "version_computed"
	PhaseBranchPushed     Phase = "branch_pushed"
	PhaseRequestOpen      Phase = "request_open"
	PhaseChecksRegistered Phase = "checks_registered"
	PhaseChecksComplete   Phase = "checks_complete"
	PhaseTagged           Phase = "tagged"
	PhaseAborted          Phase = "aborted"
)

// Terminal reports whether the phase ends the attempt.
func (p Phase) Terminal() bool {
	return p == PhaseTagged || p == PhaseAborted
}

// ReleaseResult records the outcome of one release attempt.
type ReleaseResult struct {
	AttemptID types.AttemptID
	Fragment  BumpFragment

	// Phase is the terminal phase: PhaseTagged on success, PhaseAborted
	// otherwise. AbortedIn holds the last phase reached before the abort.
	Phase     Phase
	AbortedIn Phase
	Reason    types.AbortReason

	Previous *Version // latest released version before this attempt, nil when none existed
	Next     *Version // computed target version, nil when aborted before computation
	Branch   types.BranchName
	Request  *ReleaseRequest
	Rollup   CheckRollup
	Tag      types.TagName
}

// Released reports whether the attempt reached the terminal success state.
func (r *ReleaseResult) Released() bool {
	return r.Phase == PhaseTagged
}
