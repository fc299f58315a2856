package app

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"gapsync/internal/adapters"
	"gapsync/internal/shared"
	"gapsync/internal/types"
)

// Ingest validates a host manifest and records it in the manifest
// store. The manifest comes either from a JSON file or from a raw
// rpm -qa capture plus the host identity flags.
func (s Service) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	manifest, err := s.loadManifest(req)
	if err != nil {
		return IngestResult{}, err
	}
	for i := range manifest.Packages {
		manifest.Packages[i].Epoch = shared.NormalizeEpoch(manifest.Packages[i].Epoch)
	}
	if err := s.Validator.ValidateManifest(ctx, manifest); err != nil {
		return IngestResult{}, err
	}

	store := adapters.NewManifestIndexAdapter(req.DataDir)
	entry, err := store.Ingest(ctx, manifest)
	if err != nil {
		return IngestResult{}, err
	}
	return IngestResult{
		HostID:        manifest.HostID,
		PackageCount:  len(manifest.Packages),
		ManifestCount: entry.ManifestCount,
	}, nil
}

// Hosts lists every host known to the manifest store.
func (s Service) Hosts(ctx context.Context, req HostsRequest) (HostsResult, error) {
	if err := ctx.Err(); err != nil {
		return HostsResult{}, err
	}
	store := adapters.NewManifestIndexAdapter(req.DataDir)
	hosts, err := store.ListHosts()
	if err != nil {
		return HostsResult{}, err
	}
	return HostsResult{Hosts: hosts}, nil
}

func (s Service) loadManifest(req IngestRequest) (types.HostManifest, error) {
	hasManifest := strings.TrimSpace(req.ManifestPath) != ""
	hasPackageList := strings.TrimSpace(req.PackageListPath) != ""
	switch {
	case hasManifest && hasPackageList:
		return types.HostManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest file and package list are mutually exclusive")
	case hasManifest:
		return readManifestFile(req.ManifestPath)
	case hasPackageList:
		return s.manifestFromPackageList(req)
	default:
		return types.HostManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("either a manifest file or a package list is required")
	}
}

func readManifestFile(path string) (types.HostManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.HostManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read manifest file").
			WithCause(err)
	}
	var manifest types.HostManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return types.HostManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest file is not valid JSON").
			WithCause(err)
	}
	return manifest, nil
}

func (s Service) manifestFromPackageList(req IngestRequest) (types.HostManifest, error) {
	if strings.TrimSpace(req.HostID) == "" {
		return types.HostManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("host id is required when ingesting a package list")
	}
	file, err := os.Open(req.PackageListPath)
	if err != nil {
		return types.HostManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to open package list").
			WithCause(err)
	}
	defer file.Close()

	records, err := adapters.ParsePackageList(file)
	if err != nil {
		return types.HostManifest{}, err
	}
	capturedAt := strings.TrimSpace(req.CapturedAt)
	if capturedAt == "" {
		capturedAt = s.now().Format(time.RFC3339)
	}
	return types.HostManifest{
		HostID:     req.HostID,
		CapturedAt: capturedAt,
		OSRelease: types.OSRelease{
			ID:      req.OSID,
			Version: req.OSVersion,
		},
		Packages: records,
	}, nil
}
