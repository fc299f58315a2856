package adapters

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"gapsync/internal/ports"
	"gapsync/internal/shared"
	"gapsync/internal/types"
)

// packageCacheFileName is written next to repodata by the builder-side
// mirror job. It maps "name.arch" keys to the newest package per key so
// the resolver never has to parse repository metadata itself.
const packageCacheFileName = ".package_cache.json"

// CatalogFileAdapter reads channel catalogs from a mirror tree laid out
// as <mirror>/<profile>/<arch>/<channel>/. Loaded catalogs are cached
// for the lifetime of the adapter; mirror content does not change while
// a resolution run is in flight.
type CatalogFileAdapter struct {
	MirrorDir string
	cache     map[string]types.Catalog
}

func NewCatalogFileAdapter(mirrorDir string) *CatalogFileAdapter {
	return &CatalogFileAdapter{
		MirrorDir: mirrorDir,
		cache:     map[string]types.Catalog{},
	}
}

func (a *CatalogFileAdapter) Channels(profile string, arch string) ([]string, error) {
	if strings.TrimSpace(a.MirrorDir) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("mirror directory is empty")
	}
	dir := filepath.Join(a.MirrorDir, profile, arch)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read mirror profile directory").
			WithCause(err)
	}
	var channels []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		channels = append(channels, entry.Name())
	}
	sort.Strings(channels)
	return channels, nil
}

func (a *CatalogFileAdapter) LoadCatalog(profile string, arch string, channel string) (types.Catalog, error) {
	cacheKey := profile + "/" + arch + "/" + channel
	if catalog, ok := a.cache[cacheKey]; ok {
		return catalog, nil
	}

	path := filepath.Join(a.MirrorDir, profile, arch, channel, packageCacheFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A channel without a package cache simply offers nothing;
			// the builder may not have finished mirroring it yet.
			log.Warn().Str("channel", cacheKey).Msg("no package cache for channel")
			catalog := types.Catalog{}
			a.cache[cacheKey] = catalog
			return catalog, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read package cache").
			WithCause(err)
	}

	var raw map[string]types.PackageRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package cache is not valid JSON: " + path).
			WithCause(err)
	}

	catalog := make(types.Catalog, len(raw))
	for _, record := range raw {
		if record.Name == "" || record.Arch == "" {
			continue
		}
		record.Epoch = shared.NormalizeEpoch(record.Epoch)
		catalog[record.Key()] = record
	}
	a.cache[cacheKey] = catalog
	return catalog, nil
}

var _ ports.CatalogPort = (*CatalogFileAdapter)(nil)
