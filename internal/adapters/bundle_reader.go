package adapters

import (
	"archive/tar"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"gapsync/internal/ports"
	"gapsync/internal/shared"
	"gapsync/internal/types"
)

// BundleReaderAdapter validates an inbound bundle archive end-to-end
// and stages it into a lifecycle channel. Verification runs against an
// isolated extraction directory; the target channel is only touched
// after every check has passed, so a failed import leaves prior channel
// content exactly as it was.
type BundleReaderAdapter struct {
	Lifecycle    LifecycleStoreAdapter
	ProcessedDir string

	// Signer performs signature verification when requested. The
	// keyring is the key material carried inside the bundle itself.
	Signer ports.SignerPort

	Clock func() time.Time
}

func NewBundleReaderAdapter(lifecycle LifecycleStoreAdapter, processedDir string, signer ports.SignerPort, clock func() time.Time) BundleReaderAdapter {
	if clock == nil {
		clock = time.Now
	}
	return BundleReaderAdapter{
		Lifecycle:    lifecycle,
		ProcessedDir: processedDir,
		Signer:       signer,
		Clock:        clock,
	}
}

func (a BundleReaderAdapter) VerifyAndStage(ctx context.Context, archivePath string, opts ports.ImportOptions) (types.ImportReceipt, error) {
	channel := strings.TrimSpace(opts.Channel)
	if channel == "" {
		channel = "testing"
	}
	if _, err := os.Stat(archivePath); err != nil {
		return types.ImportReceipt{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("bundle archive not found").
			WithCause(err)
	}

	// Transport integrity first: the sidecar checksum covers the
	// archive bytes as a whole and fails fast on a corrupted carry.
	if err := verifyChecksumSidecar(archivePath); err != nil {
		return types.ImportReceipt{}, err
	}

	workDir, err := os.MkdirTemp("", "gapsync-import-")
	if err != nil {
		return types.ImportReceipt{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create extraction directory").
			WithCause(err)
	}
	defer os.RemoveAll(workDir)

	if err := extractTarGz(archivePath, workDir); err != nil {
		return types.ImportReceipt{}, err
	}

	bom, err := readBOM(workDir)
	if err != nil {
		return types.ImportReceipt{}, err
	}
	if err := verifyBOM(workDir, bom); err != nil {
		return types.ImportReceipt{}, err
	}

	manifest, err := readBundleManifest(workDir)
	if err != nil {
		return types.ImportReceipt{}, err
	}
	bundleID := manifest.BundleName + "-" + manifest.BundleVersion

	signatureVerified := false
	if opts.VerifySignature {
		signatureVerified, err = a.verifySignature(ctx, archivePath, workDir, opts.SignatureOptional)
		if err != nil {
			return types.ImportReceipt{}, err
		}
	}

	now := a.Clock().UTC()
	meta := types.ChannelMetadata{
		BundleID:   bundleID,
		ImportedAt: now.Format(time.RFC3339),
		Status:     types.ChannelStatusImported,
	}
	if err := a.Lifecycle.Stage(ctx, channel, workDir, meta); err != nil {
		return types.ImportReceipt{}, err
	}

	archivedTo, err := a.archiveProcessed(archivePath)
	if err != nil {
		return types.ImportReceipt{}, err
	}

	log.Ctx(ctx).Info().
		Str("bundle", bundleID).
		Str("channel", channel).
		Int("files", bom.FileCount).
		Bool("signature_verified", signatureVerified).
		Msg("bundle imported")
	return types.ImportReceipt{
		BundleID:          bundleID,
		Channel:           channel,
		ImportedAt:        meta.ImportedAt,
		FileCount:         bom.FileCount,
		SignatureVerified: signatureVerified,
		ArchivedTo:        archivedTo,
	}, nil
}

func (a BundleReaderAdapter) verifySignature(ctx context.Context, archivePath string, workDir string, optional bool) (bool, error) {
	signaturePath := archivePath + ".asc"
	if _, err := os.Stat(signaturePath); err != nil {
		if optional {
			log.Ctx(ctx).Warn().Str("archive", archivePath).Msg("no detached signature present, continuing")
			return false, nil
		}
		return false, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("signature verification required but no detached signature present")
	}
	if a.Signer == nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("signature verification required but no verifier configured")
	}
	if err := a.Signer.Verify(archivePath, signaturePath, filepath.Join(workDir, "keys")); err != nil {
		if optional {
			log.Ctx(ctx).Warn().Err(err).Msg("signature verification failed, continuing (optional)")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// archiveProcessed moves the bundle file and its sidecars into the
// processed-bundles area for audit.
func (a BundleReaderAdapter) archiveProcessed(archivePath string) (string, error) {
	if strings.TrimSpace(a.ProcessedDir) == "" {
		return "", nil
	}
	target := filepath.Join(a.ProcessedDir, filepath.Base(archivePath))
	if err := moveFile(archivePath, target); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to archive processed bundle").
			WithCause(err)
	}
	for _, suffix := range []string{".sha256", ".asc"} {
		sidecar := archivePath + suffix
		if _, err := os.Stat(sidecar); err != nil {
			continue
		}
		if err := moveFile(sidecar, target+suffix); err != nil {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to archive bundle sidecar").
				WithCause(err)
		}
	}
	return target, nil
}

func verifyChecksumSidecar(archivePath string) error {
	data, err := os.ReadFile(archivePath + ".sha256")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read checksum sidecar").
			WithCause(err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("checksum sidecar is empty")
	}
	digest, _, err := shared.HashFile(archivePath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to checksum archive").
			WithCause(err)
	}
	if !strings.EqualFold(fields[0], digest) {
		return errbuilder.New().
			WithCode(errbuilder.CodeDataLoss).
			WithMsg("archive checksum mismatch: " + filepath.Base(archivePath))
	}
	return nil
}

func readBOM(workDir string) (types.BillOfMaterials, error) {
	data, err := os.ReadFile(filepath.Join(workDir, types.BOMFileName))
	if err != nil {
		return types.BillOfMaterials{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bundle has no bill of materials").
			WithCause(err)
	}
	var bom types.BillOfMaterials
	if err := json.Unmarshal(data, &bom); err != nil {
		return types.BillOfMaterials{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bill of materials is not valid JSON").
			WithCause(err)
	}
	if bom.ChecksumAlgorithm != types.ChecksumAlgorithm {
		return types.BillOfMaterials{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported checksum algorithm: " + bom.ChecksumAlgorithm)
	}
	return bom, nil
}

// verifyBOM checks both directions of the BOM invariant: every listed
// file exists with the recorded hash, and every extracted file is
// listed. Either violation aborts the import.
func verifyBOM(workDir string, bom types.BillOfMaterials) error {
	listed := make(map[string]struct{}, len(bom.Files))
	for _, entry := range bom.Files {
		listed[entry.Path] = struct{}{}
		path := filepath.Join(workDir, filepath.FromSlash(entry.Path))
		if _, err := os.Stat(path); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeDataLoss).
				WithMsg("bundle file missing: " + entry.Path).
				WithCause(err)
		}
		digest, size, err := shared.HashFile(path)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to hash bundle file: " + entry.Path).
				WithCause(err)
		}
		if digest != entry.SHA256 || size != entry.Size {
			return errbuilder.New().
				WithCode(errbuilder.CodeDataLoss).
				WithMsg("checksum mismatch: " + entry.Path)
		}
	}
	return filepath.WalkDir(workDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		rel, err := filepath.Rel(workDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if name == types.BOMFileName || name == types.BundleManifestFileName {
			return nil
		}
		if _, ok := listed[name]; !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeDataLoss).
				WithMsg("file not listed in bill of materials: " + name)
		}
		return nil
	})
}

func readBundleManifest(workDir string) (types.BundleManifest, error) {
	data, err := os.ReadFile(filepath.Join(workDir, types.BundleManifestFileName))
	if err != nil {
		return types.BundleManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bundle has no manifest").
			WithCause(err)
	}
	var manifest types.BundleManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return types.BundleManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bundle manifest is not valid JSON").
			WithCause(err)
	}
	if manifest.BundleName == "" || manifest.BundleVersion == "" {
		return types.BundleManifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bundle manifest missing name or version")
	}
	return manifest, nil
}

// extractTarGz unpacks the archive into dest, rejecting entries that
// would escape it.
func extractTarGz(archivePath string, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open bundle archive").
			WithCause(err)
	}
	defer file.Close()
	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bundle archive is not valid gzip").
			WithCause(err)
	}
	defer gzipReader.Close()
	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("bundle archive is not a valid tar stream").
				WithCause(err)
		}
		name := filepath.Clean(filepath.FromSlash(header.Name))
		if filepath.IsAbs(name) || strings.HasPrefix(name, "..") {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("bundle archive entry escapes extraction root: " + header.Name)
		}
		target := filepath.Join(dest, name)
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to create directory during extraction").
					WithCause(err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to create directory during extraction").
					WithCause(err)
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to create file during extraction").
					WithCause(err)
			}
			if _, err := io.Copy(out, tarReader); err != nil {
				out.Close()
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to extract file: " + name).
					WithCause(err)
			}
			if err := out.Close(); err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to close extracted file").
					WithCause(err)
			}
		default:
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("unsupported entry type in bundle archive: " + header.Name)
		}
	}
}

var _ ports.BundleReaderPort = BundleReaderAdapter{}
