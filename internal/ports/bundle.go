package ports

import (
	"context"

	"gapsync/internal/types"
)

// ExportSources names the directory trees that feed a bundle export.
// Repository bytes are copied in exactly as found; the codec never
// rewrites mirrored content.
type ExportSources struct {
	MirrorDir  string
	KeysDir    string
	UpdatesDir string
}

// ImportOptions controls signature handling during verify-and-stage.
type ImportOptions struct {
	Channel           string
	VerifySignature   bool
	SignatureOptional bool
}

// BundleWriterPort packages repository content into a checksummed,
// optionally signed archive with a Bill of Materials.
type BundleWriterPort interface {
	// Export builds a bundle. An empty version auto-generates the next
	// YYYY-MM-DD-NNN sequence for the bundle name.
	Export(ctx context.Context, name string, version string, sources ExportSources) (types.ExportedBundle, error)
}

// BundleReaderPort validates an inbound archive end-to-end and stages
// it into a lifecycle channel. A failed verification stages nothing.
type BundleReaderPort interface {
	VerifyAndStage(ctx context.Context, archivePath string, opts ImportOptions) (types.ImportReceipt, error)
}
