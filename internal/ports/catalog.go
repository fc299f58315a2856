package ports

import "gapsync/internal/types"

// CatalogPort exposes the packages available in mirrored repository
// channels. Implementations read whatever metadata the mirroring tool
// produced; the engine only sees (name, arch) -> newest PackageRecord.
type CatalogPort interface {
	// Channels lists the channel names mirrored for a profile/arch pair.
	Channels(profile string, arch string) ([]string, error)

	// LoadCatalog returns the catalog for one channel. A channel with no
	// readable package data yields an empty catalog, not an error.
	LoadCatalog(profile string, arch string, channel string) (types.Catalog, error)
}
