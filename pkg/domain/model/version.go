package model

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// BumpFragment is the unit of semantic-version increment requested by the
// operator. There is no major-bump fragment.
type BumpFragment string

const (
	// FragmentFeature bumps the minor version and resets patch to 0
	FragmentFeature BumpFragment = "feature"
	// FragmentBug bumps the patch version only
	FragmentBug BumpFragment = "bug"
)

func (f BumpFragment) String() string { return string(f) }

// ParseFragment validates a raw fragment value against the enumerated set.
func ParseFragment(s string) (BumpFragment, error) {
	switch BumpFragment(s) {
	case FragmentFeature:
		return FragmentFeature, nil
	case FragmentBug:
		return FragmentBug, nil
	default:
		return "", goerr.New("unknown bump fragment, must be \"feature\" or \"bug\"",
			goerr.V("fragment", s),
			goerr.T(types.TagInvalidFragment),
		)
	}
}

// Version is a released version as an ordered {major, minor, patch} triple.
// The zero value is 0.0.0, the baseline used when no release tag exists yet.
type Version struct {
	v semver.Version
}

// NewVersion builds a Version from its parts.
func NewVersion(major, minor, patch uint64) Version {
	return Version{v: *semver.New(major, minor, patch, "", "")}
}

// ParseTag parses a tag name of the exact form "v<major>.<minor>.<patch>".
// Tags without the "v" prefix, with fewer than three numeric fields, or with
// prerelease/build metadata are not release tags and report ok=false.
func ParseTag(tag types.TagName) (Version, bool) {
	s, found := strings.CutPrefix(tag.String(), "v")
	if !found {
		return Version{}, false
	}

	sv, err := semver.StrictNewVersion(s)
	if err != nil || sv.Prerelease() != "" || sv.Metadata() != "" {
		return Version{}, false
	}

	return Version{v: *sv}, true
}

func (x Version) Major() uint64 { return x.v.Major() }
func (x Version) Minor() uint64 { return x.v.Minor() }
func (x Version) Patch() uint64 { return x.v.Patch() }

// String renders the bare triple, e.g. "1.3.0".
func (x Version) String() string {
	return x.v.String()
}

// TagName renders the release tag form, e.g. "v1.3.0".
func (x Version) TagName() types.TagName {
	return types.TagName("v" + x.String())
}

// BranchName renders the release branch form, e.g. "release-1.3.0".
func (x Version) BranchName() types.BranchName {
	return types.BranchName("release-" + x.String())
}

// Compare returns -1, 0 or 1 under the lexicographic triple order.
func (x Version) Compare(o Version) int {
	return x.v.Compare(&o.v)
}

// Less reports whether x precedes o under the total order.
func (x Version) Less(o Version) bool {
	return x.Compare(o) < 0
}

// Bump computes the next version for the given fragment: feature increments
// minor and resets patch, bug increments patch. The result never decreases.
func (x Version) Bump(fragment BumpFragment) (Version, error) {
	switch fragment {
	case FragmentFeature:
		return Version{v: x.v.IncMinor()}, nil
	case FragmentBug:
		return Version{v: x.v.IncPatch()}, nil
	default:
		return Version{}, goerr.New("cannot bump with unknown fragment",
			goerr.V("fragment", string(fragment)),
			goerr.T(types.TagInvalidFragment),
		)
	}
}
