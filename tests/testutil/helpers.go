// Package testutil provides shared fixture builders used across
// integration and unit test packages.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gapsync/internal/types"
)

// WriteJSON marshals v and writes it to path, creating parent
// directories as needed.
func WriteJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, append(data, '\n'), 0644))
}

// WriteRepo creates a minimal coherent yum repository at dir: a primary
// metadata file and a repomd.xml referencing it with the correct size.
func WriteRepo(t *testing.T, dir string) {
	t.Helper()
	repodata := filepath.Join(dir, "repodata")
	require.NoError(t, os.MkdirAll(repodata, 0755))

	primary := []byte("<metadata packages=\"1\"/>\n")
	require.NoError(t, os.WriteFile(filepath.Join(repodata, "primary.xml.gz"), primary, 0644))

	repomd := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <data type="primary">
    <location href="repodata/primary.xml.gz"/>
    <size>%d</size>
  </data>
</repomd>
`, len(primary))
	require.NoError(t, os.WriteFile(filepath.Join(repodata, "repomd.xml"), []byte(repomd), 0644))
}

// WriteMirrorChannel creates one mirror channel directory with a
// coherent repository, a package file and a package cache offering the
// given records.
func WriteMirrorChannel(t *testing.T, mirror string, profile string, arch string, channel string, records map[string]types.PackageRecord) {
	t.Helper()
	dir := filepath.Join(mirror, profile, arch, channel)
	WriteRepo(t, dir)

	packages := filepath.Join(dir, "Packages")
	require.NoError(t, os.MkdirAll(packages, 0755))
	for _, record := range records {
		name := fmt.Sprintf("%s-%s-%s.%s.rpm", record.Name, record.Version, record.Release, record.Arch)
		require.NoError(t, os.WriteFile(filepath.Join(packages, name), []byte("rpm bytes"), 0644))
	}
	WriteJSON(t, filepath.Join(dir, ".package_cache.json"), records)
}

// SampleManifest returns a host manifest with one outdated package
// (bash) and one current package (openssl) relative to SampleCatalog.
func SampleManifest(hostID string) types.HostManifest {
	return types.HostManifest{
		HostID:     hostID,
		CapturedAt: "2024-01-15T10:30:00Z",
		OSRelease:  types.OSRelease{ID: "rhel", Version: "9.3"},
		Packages: []types.PackageRecord{
			{Name: "bash", Epoch: "0", Version: "5.1.8", Release: "1.el9", Arch: "x86_64"},
			{Name: "openssl", Epoch: "1", Version: "3.0.7", Release: "27.el9", Arch: "x86_64"},
		},
	}
}

// SampleCatalog returns package cache records offering a newer bash
// than SampleManifest carries.
func SampleCatalog() map[string]types.PackageRecord {
	return map[string]types.PackageRecord{
		"bash.x86_64":    {Name: "bash", Epoch: "0", Version: "5.2.15", Release: "1.el9", Arch: "x86_64"},
		"openssl.x86_64": {Name: "openssl", Epoch: "1", Version: "3.0.7", Release: "27.el9", Arch: "x86_64"},
	}
}
