package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapsync/internal/ports"
	"gapsync/internal/shared"
	"gapsync/internal/types"
)

// writeMirror builds a minimal mirror tree with one coherent channel
// repository and one package file.
func writeMirror(t *testing.T, mirror string) {
	t.Helper()
	channel := filepath.Join(mirror, "rhel9", "x86_64", "baseos")
	writeRepo(t, channel)
	packages := filepath.Join(channel, "Packages")
	require.NoError(t, os.MkdirAll(packages, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(packages, "bash-5.2.15-1.el9.x86_64.rpm"), []byte("rpm bytes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(channel, packageCacheFileName),
		[]byte(`{"bash.x86_64": {"name": "bash", "epoch": "0", "version": "5.2.15", "release": "1.el9", "arch": "x86_64"}}`), 0644))
}

func TestExportVersionSequence(t *testing.T) {
	mirror := t.TempDir()
	writeMirror(t, mirror)
	outDir := t.TempDir()
	writer := NewBundleWriterAdapter(outDir, nil, fixedClock)

	first, err := writer.Export(t.Context(), "rhel-updates", "", ports.ExportSources{MirrorDir: mirror})
	require.NoError(t, err)
	assert.Equal(t, "rhel-updates-2024-01-15-001", first.BundleID)
	assert.False(t, first.GPGSigned)
	assert.Greater(t, first.FileCount, 0)

	second, err := writer.Export(t.Context(), "rhel-updates", "", ports.ExportSources{MirrorDir: mirror})
	require.NoError(t, err)
	assert.Equal(t, "rhel-updates-2024-01-15-002", second.BundleID)

	_, err = os.Stat(first.ArchivePath)
	require.NoError(t, err)
	_, err = os.Stat(first.ChecksumPath)
	require.NoError(t, err)
}

func TestExportExplicitVersionConflict(t *testing.T) {
	mirror := t.TempDir()
	writeMirror(t, mirror)
	writer := NewBundleWriterAdapter(t.TempDir(), nil, fixedClock)

	_, err := writer.Export(t.Context(), "rhel-updates", "2024-01-15-001", ports.ExportSources{MirrorDir: mirror})
	require.NoError(t, err)
	_, err = writer.Export(t.Context(), "rhel-updates", "2024-01-15-001", ports.ExportSources{MirrorDir: mirror})
	require.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	mirror := t.TempDir()
	writeMirror(t, mirror)
	updates := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(updates, "web-01.updates.json"), []byte("{}\n"), 0644))

	writer := NewBundleWriterAdapter(t.TempDir(), nil, fixedClock)
	bundle, err := writer.Export(t.Context(), "rhel-updates", "", ports.ExportSources{
		MirrorDir:  mirror,
		UpdatesDir: updates,
	})
	require.NoError(t, err)

	channelsDir := t.TempDir()
	processedDir := t.TempDir()
	lifecycle := NewLifecycleStoreAdapter(channelsDir, fixedClock)
	reader := NewBundleReaderAdapter(lifecycle, processedDir, NewGPGSignerAdapter(""), fixedClock)

	receipt, err := reader.VerifyAndStage(t.Context(), bundle.ArchivePath, ports.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, bundle.BundleID, receipt.BundleID)
	assert.Equal(t, "testing", receipt.Channel)
	assert.Equal(t, bundle.FileCount, receipt.FileCount)
	assert.False(t, receipt.SignatureVerified)

	// Channel carries the full repository tree and the update report.
	_, err = os.Stat(filepath.Join(channelsDir, "testing", "repos", "rhel9", "x86_64", "baseos", "repodata", "repomd.xml"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(channelsDir, "testing", "updates", "web-01.updates.json"))
	require.NoError(t, err)

	meta, err := lifecycle.Metadata("testing")
	require.NoError(t, err)
	assert.Equal(t, bundle.BundleID, meta.BundleID)
	assert.Equal(t, types.ChannelStatusImported, meta.Status)

	// The archive and its sidecar moved to the processed area.
	assert.Equal(t, filepath.Join(processedDir, filepath.Base(bundle.ArchivePath)), receipt.ArchivedTo)
	_, err = os.Stat(receipt.ArchivedTo)
	require.NoError(t, err)
	_, err = os.Stat(receipt.ArchivedTo + ".sha256")
	require.NoError(t, err)
	_, err = os.Stat(bundle.ArchivePath)
	assert.True(t, os.IsNotExist(err))
}

func TestSignedExportImportRoundTrip(t *testing.T) {
	keyDir := t.TempDir()
	privatePath, publicPath := generateTestKey(t, keyDir)

	mirror := t.TempDir()
	writeMirror(t, mirror)

	// The public key travels inside the bundle's keys/ tree, which is
	// what import uses as its verification keyring.
	keysDir := t.TempDir()
	data, err := os.ReadFile(publicPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(keysDir, "release.asc"), data, 0644))

	writer := NewBundleWriterAdapter(t.TempDir(), NewGPGSignerAdapter(privatePath), fixedClock)
	bundle, err := writer.Export(t.Context(), "rhel-updates", "", ports.ExportSources{
		MirrorDir: mirror,
		KeysDir:   keysDir,
	})
	require.NoError(t, err)
	assert.True(t, bundle.GPGSigned)
	_, err = os.Stat(bundle.SignaturePath)
	require.NoError(t, err)

	lifecycle := NewLifecycleStoreAdapter(t.TempDir(), fixedClock)
	reader := NewBundleReaderAdapter(lifecycle, "", NewGPGSignerAdapter(""), fixedClock)
	receipt, err := reader.VerifyAndStage(t.Context(), bundle.ArchivePath, ports.ImportOptions{
		VerifySignature: true,
	})
	require.NoError(t, err)
	assert.True(t, receipt.SignatureVerified)
}

func TestImportRejectsCorruptedArchive(t *testing.T) {
	mirror := t.TempDir()
	writeMirror(t, mirror)
	writer := NewBundleWriterAdapter(t.TempDir(), nil, fixedClock)
	bundle, err := writer.Export(t.Context(), "rhel-updates", "", ports.ExportSources{MirrorDir: mirror})
	require.NoError(t, err)

	// Flip one byte in the middle of the archive.
	data, err := os.ReadFile(bundle.ArchivePath)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xff
	require.NoError(t, os.WriteFile(bundle.ArchivePath, data, 0644))

	channelsDir := t.TempDir()
	lifecycle := NewLifecycleStoreAdapter(channelsDir, fixedClock)
	reader := NewBundleReaderAdapter(lifecycle, "", NewGPGSignerAdapter(""), fixedClock)

	_, err = reader.VerifyAndStage(t.Context(), bundle.ArchivePath, ports.ImportOptions{})
	require.Error(t, err)

	// The channel was never touched.
	_, statErr := os.Stat(filepath.Join(channelsDir, "testing"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestImportRejectsTamperedListedFile(t *testing.T) {
	// The archive itself is intact, but one bundled file was altered
	// after the bill of materials recorded its hash. Same size, so only
	// the digest comparison can catch it.
	staging := t.TempDir()
	rpmPath := filepath.Join(staging, "repos", "rhel9", "x86_64", "baseos", "Packages", "bash-5.2.15-1.el9.x86_64.rpm")
	require.NoError(t, os.MkdirAll(filepath.Dir(rpmPath), 0755))
	require.NoError(t, os.WriteFile(rpmPath, []byte("rpm payload A"), 0644))

	digest, size, err := shared.HashFile(rpmPath)
	require.NoError(t, err)
	bom := types.BillOfMaterials{
		GeneratedAt:       "2024-01-15T12:00:00Z",
		FileCount:         1,
		TotalSize:         size,
		ChecksumAlgorithm: types.ChecksumAlgorithm,
		Files: []types.BOMFile{{
			Path:   "repos/rhel9/x86_64/baseos/Packages/bash-5.2.15-1.el9.x86_64.rpm",
			SHA256: digest,
			Size:   size,
		}},
	}
	require.NoError(t, writeJSONAtomic(filepath.Join(staging, types.BOMFileName), bom))
	manifest := types.BundleManifest{
		BundleName:    "handmade",
		BundleVersion: "2024-01-15-001",
		FormatVersion: types.BundleFormatVersion,
	}
	require.NoError(t, writeJSONAtomic(filepath.Join(staging, types.BundleManifestFileName), manifest))

	require.NoError(t, os.WriteFile(rpmPath, []byte("rpm payload B"), 0644))

	archivePath := filepath.Join(t.TempDir(), "handmade-2024-01-15-001.tar.gz")
	require.NoError(t, tarGzDirectory(staging, archivePath))

	channelsDir := t.TempDir()
	lifecycle := NewLifecycleStoreAdapter(channelsDir, fixedClock)
	reader := NewBundleReaderAdapter(lifecycle, "", NewGPGSignerAdapter(""), fixedClock)
	_, err = reader.VerifyAndStage(t.Context(), archivePath, ports.ImportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
	assert.Contains(t, err.Error(), "repos/rhel9/x86_64/baseos/Packages/bash-5.2.15-1.el9.x86_64.rpm")

	_, statErr := os.Stat(filepath.Join(channelsDir, "testing"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestImportRejectsUnlistedFile(t *testing.T) {
	// Build an archive by hand whose content disagrees with its bill of
	// materials: one extra file the BOM does not list.
	staging := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staging, "listed.txt"), []byte("listed"), 0644))

	digest, size, err := shared.HashFile(filepath.Join(staging, "listed.txt"))
	require.NoError(t, err)
	bom := types.BillOfMaterials{
		GeneratedAt:       "2024-01-15T12:00:00Z",
		FileCount:         1,
		TotalSize:         size,
		ChecksumAlgorithm: types.ChecksumAlgorithm,
		Files:             []types.BOMFile{{Path: "listed.txt", SHA256: digest, Size: size}},
	}
	require.NoError(t, writeJSONAtomic(filepath.Join(staging, types.BOMFileName), bom))
	manifest := types.BundleManifest{
		BundleName:    "handmade",
		BundleVersion: "2024-01-15-001",
		FormatVersion: types.BundleFormatVersion,
	}
	require.NoError(t, writeJSONAtomic(filepath.Join(staging, types.BundleManifestFileName), manifest))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "smuggled.txt"), []byte("extra"), 0644))

	archivePath := filepath.Join(t.TempDir(), "handmade-2024-01-15-001.tar.gz")
	require.NoError(t, tarGzDirectory(staging, archivePath))

	lifecycle := NewLifecycleStoreAdapter(t.TempDir(), fixedClock)
	reader := NewBundleReaderAdapter(lifecycle, "", NewGPGSignerAdapter(""), fixedClock)
	_, err = reader.VerifyAndStage(t.Context(), archivePath, ports.ImportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smuggled.txt")
}

func TestImportRejectsMissingListedFile(t *testing.T) {
	staging := t.TempDir()
	bom := types.BillOfMaterials{
		GeneratedAt:       "2024-01-15T12:00:00Z",
		FileCount:         1,
		TotalSize:         5,
		ChecksumAlgorithm: types.ChecksumAlgorithm,
		Files:             []types.BOMFile{{Path: "repos/ghost.rpm", SHA256: "00", Size: 5}},
	}
	require.NoError(t, writeJSONAtomic(filepath.Join(staging, types.BOMFileName), bom))
	manifest := types.BundleManifest{
		BundleName:    "handmade",
		BundleVersion: "2024-01-15-001",
		FormatVersion: types.BundleFormatVersion,
	}
	require.NoError(t, writeJSONAtomic(filepath.Join(staging, types.BundleManifestFileName), manifest))

	archivePath := filepath.Join(t.TempDir(), "handmade-2024-01-15-001.tar.gz")
	require.NoError(t, tarGzDirectory(staging, archivePath))

	lifecycle := NewLifecycleStoreAdapter(t.TempDir(), fixedClock)
	reader := NewBundleReaderAdapter(lifecycle, "", NewGPGSignerAdapter(""), fixedClock)
	_, err := reader.VerifyAndStage(t.Context(), archivePath, ports.ImportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost.rpm")
}

func TestImportSignatureRequiredButAbsent(t *testing.T) {
	mirror := t.TempDir()
	writeMirror(t, mirror)
	writer := NewBundleWriterAdapter(t.TempDir(), nil, fixedClock)
	bundle, err := writer.Export(t.Context(), "rhel-updates", "", ports.ExportSources{MirrorDir: mirror})
	require.NoError(t, err)

	lifecycle := NewLifecycleStoreAdapter(t.TempDir(), fixedClock)
	reader := NewBundleReaderAdapter(lifecycle, "", NewGPGSignerAdapter(""), fixedClock)

	_, err = reader.VerifyAndStage(t.Context(), bundle.ArchivePath, ports.ImportOptions{VerifySignature: true})
	require.Error(t, err)

	receipt, err := reader.VerifyAndStage(t.Context(), bundle.ArchivePath, ports.ImportOptions{
		VerifySignature:   true,
		SignatureOptional: true,
	})
	require.NoError(t, err)
	assert.False(t, receipt.SignatureVerified)
}
