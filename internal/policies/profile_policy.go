package policies

import (
	"fmt"
	"strings"
)

// ProfilePolicy maps a host's OS identity to the mirrored repository
// profile that serves it (e.g. rhel 9.6 -> "rhel9"). Overrides from a
// policy file take precedence over the built-in family mapping.
type ProfilePolicy struct {
	Overrides map[string]string
}

func NewProfilePolicy(overrides map[string]string) ProfilePolicy {
	return ProfilePolicy{Overrides: overrides}
}

// ProfileFor returns the repository profile for an OS identity.
// Override keys are checked most-specific first: "id-version", then
// "id-major", then "id". Without an override every RHEL-family
// distribution (rhel, centos, rocky, almalinux) and anything unknown
// maps to the RHEL profile of its major version, since that is what the
// builder mirrors.
func (p ProfilePolicy) ProfileFor(osID string, osVersion string) string {
	id := strings.ToLower(strings.TrimSpace(osID))
	major := majorVersion(osVersion)

	for _, key := range []string{
		fmt.Sprintf("%s-%s", id, strings.TrimSpace(osVersion)),
		fmt.Sprintf("%s-%s", id, major),
		id,
	} {
		if profile, ok := p.Overrides[key]; ok {
			return profile
		}
	}
	return "rhel" + major
}

func majorVersion(version string) string {
	trimmed := strings.TrimSpace(version)
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}
