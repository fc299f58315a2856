package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"gapsync/internal/ports"
	"gapsync/internal/types"
)

// ManifestIndexAdapter is the file-backed manifest store. Layout under
// Root:
//
//	manifests/<host_id>/<captured_at>.json   stored manifests (immutable)
//	index/<host_id>.json                     per-host index entry
//
// Manifests are never deleted or rewritten; a new capture adds a file
// and advances the index pointer. Concurrent readers are safe because
// every write lands on a temporary path and is renamed into place.
type ManifestIndexAdapter struct {
	Root string
}

func NewManifestIndexAdapter(root string) ManifestIndexAdapter {
	return ManifestIndexAdapter{Root: root}
}

func (a ManifestIndexAdapter) Ingest(ctx context.Context, manifest types.HostManifest) (types.ManifestIndexEntry, error) {
	if strings.TrimSpace(a.Root) == "" {
		return types.ManifestIndexEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest store root is empty")
	}
	if strings.TrimSpace(manifest.HostID) == "" {
		return types.ManifestIndexEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest host_id is empty")
	}
	if strings.ContainsAny(manifest.HostID, "/\\") || strings.ContainsAny(manifest.CapturedAt, "/\\") {
		return types.ManifestIndexEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest identity contains path separator")
	}

	hostDir := filepath.Join(a.Root, "manifests", manifest.HostID)
	manifestPath := filepath.Join(hostDir, manifest.CapturedAt+".json")

	entry, hasEntry, err := a.readEntry(manifest.HostID)
	if err != nil {
		return types.ManifestIndexEntry{}, err
	}

	// Re-ingesting the same (host_id, captured_at) is idempotent: the
	// stored manifest wins and the counters do not move.
	if _, statErr := os.Stat(manifestPath); statErr == nil {
		log.Ctx(ctx).Debug().
			Str("host", manifest.HostID).
			Str("captured_at", manifest.CapturedAt).
			Msg("manifest already ingested")
		return entry, nil
	}

	if err := os.MkdirAll(hostDir, 0755); err != nil {
		return types.ManifestIndexEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create manifest directory").
			WithCause(err)
	}
	if err := writeJSONAtomic(manifestPath, manifest); err != nil {
		return types.ManifestIndexEntry{}, err
	}

	manifestID := manifest.HostID + "/" + manifest.CapturedAt
	if !hasEntry {
		entry = types.ManifestIndexEntry{
			HostID:           manifest.HostID,
			FirstSeen:        manifest.CapturedAt,
			LastUpdated:      manifest.CapturedAt,
			LatestManifestID: manifestID,
			ManifestCount:    1,
		}
	} else {
		entry.ManifestCount++
		// The index is monotonic: an out-of-order ingest of an older
		// capture never rewinds last_updated or the latest pointer.
		if manifest.CapturedAt > entry.LastUpdated {
			entry.LastUpdated = manifest.CapturedAt
			entry.LatestManifestID = manifestID
		}
		if manifest.CapturedAt < entry.FirstSeen {
			entry.FirstSeen = manifest.CapturedAt
		}
	}

	indexDir := filepath.Join(a.Root, "index")
	if err := os.MkdirAll(indexDir, 0755); err != nil {
		return types.ManifestIndexEntry{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create index directory").
			WithCause(err)
	}
	if err := writeJSONAtomic(filepath.Join(indexDir, manifest.HostID+".json"), entry); err != nil {
		return types.ManifestIndexEntry{}, err
	}

	log.Ctx(ctx).Info().
		Str("host", manifest.HostID).
		Int("packages", len(manifest.Packages)).
		Int("manifest_count", entry.ManifestCount).
		Msg("manifest ingested")
	return entry, nil
}

func (a ManifestIndexAdapter) Latest(hostID string) (types.HostManifest, error) {
	entry, hasEntry, err := a.readEntry(hostID)
	if err != nil {
		return types.HostManifest{}, err
	}
	if !hasEntry {
		return types.HostManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no manifest for host %s", hostID))
	}
	path := filepath.Join(a.Root, "manifests", filepath.FromSlash(entry.LatestManifestID)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return types.HostManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read manifest named by index").
			WithCause(err)
	}
	var manifest types.HostManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return types.HostManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("stored manifest is not valid JSON").
			WithCause(err)
	}
	return manifest, nil
}

func (a ManifestIndexAdapter) ListHosts() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.Root, "index"))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read index directory").
			WithCause(err)
	}
	var hosts []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		hosts = append(hosts, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(hosts)
	return hosts, nil
}

func (a ManifestIndexAdapter) readEntry(hostID string) (types.ManifestIndexEntry, bool, error) {
	path := filepath.Join(a.Root, "index", hostID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.ManifestIndexEntry{}, false, nil
		}
		return types.ManifestIndexEntry{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read index entry").
			WithCause(err)
	}
	var entry types.ManifestIndexEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return types.ManifestIndexEntry{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("index entry is not valid JSON").
			WithCause(err)
	}
	return entry, true, nil
}

// writeJSONAtomic marshals v and writes it with writeFileAtomic.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal JSON").
			WithCause(err)
	}
	return writeFileAtomic(path, append(data, '\n'), 0644)
}

var _ ports.ManifestStorePort = ManifestIndexAdapter{}
