package adapters

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"gapsync/internal/ports"
	"gapsync/internal/shared"
	"gapsync/internal/types"
)

// BundleWriterAdapter packages mirrored repositories, GPG keys and
// update reports into a single checksummed tar.gz bundle with a Bill of
// Materials. All intermediate output lands on temporary paths inside
// OutDir and is renamed into place, so an interrupted export leaves no
// partial archive behind.
type BundleWriterAdapter struct {
	OutDir string

	// Signer is optional; a nil signer or one whose key material is
	// unavailable degrades the export to unsigned rather than failing.
	Signer ports.SignerPort

	Clock func() time.Time
}

func NewBundleWriterAdapter(outDir string, signer ports.SignerPort, clock func() time.Time) BundleWriterAdapter {
	if clock == nil {
		clock = time.Now
	}
	return BundleWriterAdapter{OutDir: outDir, Signer: signer, Clock: clock}
}

func (a BundleWriterAdapter) Export(ctx context.Context, name string, version string, sources ports.ExportSources) (types.ExportedBundle, error) {
	if strings.TrimSpace(a.OutDir) == "" {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bundle output directory is empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bundle name is empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bundle name contains path separator")
	}
	if strings.TrimSpace(sources.MirrorDir) == "" {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("mirror directory is required")
	}
	if _, err := os.Stat(sources.MirrorDir); err != nil {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("mirror directory does not exist").
			WithCause(err)
	}
	if err := os.MkdirAll(a.OutDir, 0755); err != nil {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create bundle output directory").
			WithCause(err)
	}

	now := a.Clock().UTC()
	version = strings.TrimSpace(version)
	if version == "" {
		next, err := a.nextVersion(name, now)
		if err != nil {
			return types.ExportedBundle{}, err
		}
		version = next
	}
	bundleID := name + "-" + version
	archivePath := filepath.Join(a.OutDir, bundleID+".tar.gz")
	if _, err := os.Stat(archivePath); err == nil {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("bundle %s already exists", bundleID))
	}

	staging := filepath.Join(a.OutDir, ".stage-"+bundleID)
	if err := os.RemoveAll(staging); err != nil {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to clear staging directory").
			WithCause(err)
	}
	defer os.RemoveAll(staging)

	if err := copyTree(sources.MirrorDir, filepath.Join(staging, "repos")); err != nil {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage repository trees").
			WithCause(err)
	}
	if strings.TrimSpace(sources.KeysDir) != "" {
		if err := copyTree(sources.KeysDir, filepath.Join(staging, "keys")); err != nil {
			return types.ExportedBundle{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to stage key material").
				WithCause(err)
		}
	} else if err := os.MkdirAll(filepath.Join(staging, "keys"), 0755); err != nil {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create keys directory").
			WithCause(err)
	}
	if strings.TrimSpace(sources.UpdatesDir) != "" {
		if err := copyTree(sources.UpdatesDir, filepath.Join(staging, "updates")); err != nil {
			return types.ExportedBundle{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to stage update reports").
				WithCause(err)
		}
	}

	// The BOM is written before the bundle manifest so that neither
	// lists itself: BOM covers content only, manifest covers the BOM's
	// metadata counterparts.
	bom, err := computeBOM(staging, now)
	if err != nil {
		return types.ExportedBundle{}, err
	}
	if err := writeJSONAtomic(filepath.Join(staging, types.BOMFileName), bom); err != nil {
		return types.ExportedBundle{}, err
	}

	gpgSigned := false
	if a.Signer != nil {
		if err := a.Signer.Ready(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("signing unavailable, exporting unsigned bundle")
		} else {
			gpgSigned = true
		}
	} else {
		log.Ctx(ctx).Warn().Msg("no signer configured, exporting unsigned bundle")
	}

	profiles, err := topLevelDirs(filepath.Join(staging, "repos"))
	if err != nil {
		return types.ExportedBundle{}, err
	}
	manifest := types.BundleManifest{
		BundleName:      name,
		BundleVersion:   version,
		CreatedAt:       now.Format(time.RFC3339),
		RepositoryCount: countRepositories(bom),
		PackageCount:    countPackages(bom),
		Profiles:        profiles,
		GPGSigned:       gpgSigned,
		FormatVersion:   types.BundleFormatVersion,
	}
	if err := writeJSONAtomic(filepath.Join(staging, types.BundleManifestFileName), manifest); err != nil {
		return types.ExportedBundle{}, err
	}

	archiveTmp := archivePath + ".partial"
	if err := tarGzDirectory(staging, archiveTmp); err != nil {
		os.Remove(archiveTmp)
		return types.ExportedBundle{}, err
	}
	if err := os.Rename(archiveTmp, archivePath); err != nil {
		os.Remove(archiveTmp)
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to move archive into place").
			WithCause(err)
	}

	digest, _, err := shared.HashFile(archivePath)
	if err != nil {
		return types.ExportedBundle{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to checksum archive").
			WithCause(err)
	}
	checksumPath := archivePath + ".sha256"
	checksumLine := fmt.Sprintf("%s  %s\n", digest, filepath.Base(archivePath))
	if err := writeFileAtomic(checksumPath, []byte(checksumLine), 0644); err != nil {
		return types.ExportedBundle{}, err
	}

	signaturePath := ""
	if gpgSigned {
		// Ready() succeeded above, so a failure here is an environment
		// problem (disk, permissions) and propagates rather than
		// silently downgrading a bundle whose manifest says signed.
		signaturePath, err = a.Signer.Sign(archivePath)
		if err != nil {
			return types.ExportedBundle{}, err
		}
	}

	log.Ctx(ctx).Info().
		Str("bundle", bundleID).
		Int("files", bom.FileCount).
		Int64("bytes", bom.TotalSize).
		Bool("gpg_signed", gpgSigned).
		Msg("bundle exported")
	return types.ExportedBundle{
		BundleID:      bundleID,
		Name:          name,
		Version:       version,
		ArchivePath:   archivePath,
		ChecksumPath:  checksumPath,
		SignaturePath: signaturePath,
		GPGSigned:     gpgSigned,
		FileCount:     bom.FileCount,
		TotalSize:     bom.TotalSize,
	}, nil
}

// nextVersion produces the next YYYY-MM-DD-NNN sequence for the bundle
// name by scanning archives already present in OutDir, so uniqueness
// per day needs no central counter.
func (a BundleWriterAdapter) nextVersion(name string, now time.Time) (string, error) {
	date := now.Format("2006-01-02")
	prefix := name + "-" + date + "-"
	entries, err := os.ReadDir(a.OutDir)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan bundle output directory").
			WithCause(err)
	}
	highest := 0
	for _, entry := range entries {
		fileName := entry.Name()
		if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, ".tar.gz") {
			continue
		}
		sequence := strings.TrimSuffix(strings.TrimPrefix(fileName, prefix), ".tar.gz")
		value, err := strconv.Atoi(sequence)
		if err != nil {
			continue
		}
		if value > highest {
			highest = value
		}
	}
	return fmt.Sprintf("%s-%03d", date, highest+1), nil
}

// computeBOM hashes every file currently staged. WalkDir visits paths
// in lexical order, which fixes the BOM's file ordering.
func computeBOM(staging string, now time.Time) (types.BillOfMaterials, error) {
	bom := types.BillOfMaterials{
		GeneratedAt:       now.Format(time.RFC3339),
		ChecksumAlgorithm: types.ChecksumAlgorithm,
		Files:             []types.BOMFile{},
	}
	err := filepath.WalkDir(staging, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(staging, path)
		if err != nil {
			return err
		}
		digest, size, err := shared.HashFile(path)
		if err != nil {
			return err
		}
		bom.Files = append(bom.Files, types.BOMFile{
			Path:   filepath.ToSlash(rel),
			SHA256: digest,
			Size:   size,
		})
		bom.TotalSize += size
		return nil
	})
	if err != nil {
		return types.BillOfMaterials{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to compute bill of materials").
			WithCause(err)
	}
	bom.FileCount = len(bom.Files)
	return bom, nil
}

// tarGzDirectory archives dir with stable (lexical) entry ordering.
func tarGzDirectory(dir string, outPath string) error {
	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create archive file").
			WithCause(err)
	}
	gzipWriter := gzip.NewWriter(out)
	tarWriter := tar.NewWriter(gzipWriter)

	walkErr := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if entry.IsDir() {
			header.Name += "/"
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(tarWriter, file)
		file.Close()
		return copyErr
	})
	if walkErr != nil {
		tarWriter.Close()
		gzipWriter.Close()
		out.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write archive").
			WithCause(walkErr)
	}
	if err := tarWriter.Close(); err != nil {
		gzipWriter.Close()
		out.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize archive").
			WithCause(err)
	}
	if err := gzipWriter.Close(); err != nil {
		out.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize archive").
			WithCause(err)
	}
	if err := out.Close(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize archive").
			WithCause(err)
	}
	return nil
}

func topLevelDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read staged repository directory").
			WithCause(err)
	}
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func countPackages(bom types.BillOfMaterials) int {
	count := 0
	for _, file := range bom.Files {
		if strings.HasSuffix(file.Path, ".rpm") {
			count++
		}
	}
	return count
}

// countRepositories counts distinct directories holding repodata, i.e.
// one per mirrored channel.
func countRepositories(bom types.BillOfMaterials) int {
	seen := map[string]struct{}{}
	for _, file := range bom.Files {
		idx := strings.Index(file.Path, "/repodata/")
		if idx < 0 {
			continue
		}
		seen[file.Path[:idx]] = struct{}{}
	}
	return len(seen)
}

var _ ports.BundleWriterPort = BundleWriterAdapter{}
