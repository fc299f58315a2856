package types

// PackageRecord identifies one RPM package by its NEVRA components.
//
// Epoch is carried as a string exactly as rpm emits it; "(none)", "None"
// and the empty string normalize to "0" during ingestion. Identity for
// catalog lookups is (Name, Arch); ordering across records with the same
// identity is defined by core.Compare.
type PackageRecord struct {
	Name    string `json:"name"`
	Epoch   string `json:"epoch"`
	Version string `json:"version"`
	Release string `json:"release"`
	Arch    string `json:"arch"`

	// InstallTime is the epoch-seconds install timestamp reported by
	// rpm -qa, when present. Informational only.
	InstallTime string `json:"installtime,omitempty"`
}

// Key returns the catalog lookup identity of the record.
func (p PackageRecord) Key() PackageKey {
	return PackageKey{Name: p.Name, Arch: p.Arch}
}

// EVR returns the epoch/version/release triple used for ordering.
func (p PackageRecord) EVR() EVR {
	return EVR{Epoch: p.Epoch, Version: p.Version, Release: p.Release}
}

// PackageKey is the (name, arch) identity under which packages are
// compared between a host manifest and a channel catalog.
type PackageKey struct {
	Name string `json:"name"`
	Arch string `json:"arch"`
}

// EVR is the orderable part of a NEVRA tuple.
type EVR struct {
	Epoch   string `json:"epoch"`
	Version string `json:"version"`
	Release string `json:"release"`
}

// OSRelease captures the distribution identity of a managed host, as
// read from /etc/os-release on the host side.
type OSRelease struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// HostManifest is one point-in-time package inventory for a host.
// Manifests are immutable once ingested; a newer capture supersedes an
// older one but never replaces it on disk.
type HostManifest struct {
	HostID     string          `json:"host_id"`
	CapturedAt string          `json:"timestamp"`
	OSRelease  OSRelease       `json:"os_release"`
	Packages   []PackageRecord `json:"packages"`
}

// ManifestIndexEntry is the per-host index row maintained by the
// manifest store. LatestManifestID always resolves to a stored manifest;
// ManifestCount and LastUpdated never move backwards.
type ManifestIndexEntry struct {
	HostID           string `json:"host_id"`
	FirstSeen        string `json:"first_seen"`
	LastUpdated      string `json:"last_updated"`
	LatestManifestID string `json:"latest_manifest_id"`
	ManifestCount    int    `json:"manifest_count"`
}
