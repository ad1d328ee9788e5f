package types

// Version is the application version, overridden at build time via
// -ldflags "-X github.com/m-mizutani/drover/pkg/domain/types.Version=..."
var Version = "dev"

// BranchName is a git branch name such as "release-1.3.0"
type BranchName string

func (b BranchName) String() string { return string(b) }

// TagName is a git tag name such as "v1.3.0"
type TagName string

func (t TagName) String() string { return string(t) }

// CommitSHA is a full git commit hash
type CommitSHA string

func (c CommitSHA) String() string { return string(c) }

// Short returns the first 7 characters of the commit SHA
func (c CommitSHA) Short() string {
	if len(c) >= 7 {
		return string(c[:7])
	}
	return string(c)
}

// RequestNumber is the hosting platform's pull request number
type RequestNumber int

// AttemptID identifies one release attempt for log correlation
type AttemptID string

func (a AttemptID) String() string { return string(a) }
