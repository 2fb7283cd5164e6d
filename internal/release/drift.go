package release

import "github.com/Masterminds/semver/v3"

// Drift describes how a newly resolved version relates to the recorded one.
// Installs are decided on string inequality alone; Drift only shapes messages.
type Drift int

const (
	// DriftInitial means no version was recorded before.
	DriftInitial Drift = iota
	// DriftUpgrade means latest is a higher semantic version.
	DriftUpgrade
	// DriftDowngrade means the latest release is older than what was recorded,
	// for example after a release was pulled.
	DriftDowngrade
	// DriftReinstall means the versions match, the package was just missing.
	DriftReinstall
	// DriftUnknown means at least one side is not a semantic version.
	DriftUnknown
)

func (d Drift) String() string {
	switch d {
	case DriftInitial:
		return "install"
	case DriftUpgrade:
		return "upgrade"
	case DriftDowngrade:
		return "downgrade"
	case DriftReinstall:
		return "reinstall"
	default:
		return "update"
	}
}

// Compare classifies the change from previous to latest. A "v" prefix is
// accepted on either side.
func Compare(previous, latest string) Drift {
	if previous == "" {
		return DriftInitial
	}
	if previous == latest {
		return DriftReinstall
	}

	prev, err := semver.NewVersion(previous)
	if err != nil {
		return DriftUnknown
	}
	next, err := semver.NewVersion(latest)
	if err != nil {
		return DriftUnknown
	}

	switch next.Compare(prev) {
	case 1:
		return DriftUpgrade
	case -1:
		return DriftDowngrade
	default:
		// "v1.2.0" vs "1.2.0": different tags, same version.
		return DriftReinstall
	}
}
