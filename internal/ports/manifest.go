package ports

import (
	"context"

	"gapsync/internal/types"
)

// ManifestStorePort stores host manifests and maintains the per-host
// index. Stored manifests are immutable; ingestion only ever adds files
// and advances index pointers.
type ManifestStorePort interface {
	// Ingest stores a manifest and updates the host's index entry.
	// Re-ingesting the same (host_id, captured_at) is a no-op that
	// returns the current entry.
	Ingest(ctx context.Context, manifest types.HostManifest) (types.ManifestIndexEntry, error)

	// Latest resolves the host's newest manifest via the index pointer.
	Latest(hostID string) (types.HostManifest, error)

	// ListHosts returns all indexed host ids in sorted order.
	ListHosts() ([]string, error)
}
