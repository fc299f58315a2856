package types

// File names and format constants of the bundle archive contract.
// These are wire constants shared between the exporting builder and the
// importing publisher; changing them breaks cross-version compatibility.
const (
	BOMFileName            = "BILL_OF_MATERIALS.json"
	BundleManifestFileName = "bundle_manifest.json"
	BundleFormatVersion    = "1"
	ChecksumAlgorithm      = "sha256"
)

// BOMFile is one Bill of Materials row: a bundle-relative path with its
// content hash and size.
type BOMFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// BillOfMaterials lists every file in a bundle except itself and the
// bundle manifest. No extras, no omissions: import verification fails if
// either direction of that equality breaks.
type BillOfMaterials struct {
	GeneratedAt       string    `json:"generated_at"`
	FileCount         int       `json:"file_count"`
	TotalSize         int64     `json:"total_size"`
	ChecksumAlgorithm string    `json:"checksum_algorithm"`
	Files             []BOMFile `json:"files"`
}

// BundleManifest describes the bundle as a whole. GPGSigned reflects the
// true signing outcome: an export whose signer was unavailable records
// false here rather than failing.
type BundleManifest struct {
	BundleName      string   `json:"bundle_name"`
	BundleVersion   string   `json:"bundle_version"`
	CreatedAt       string   `json:"created_at"`
	RepositoryCount int      `json:"repository_count"`
	PackageCount    int      `json:"package_count"`
	Profiles        []string `json:"profiles"`
	GPGSigned       bool     `json:"gpg_signed"`
	FormatVersion   string   `json:"format_version"`
}

// ExportedBundle is the result of a successful export.
type ExportedBundle struct {
	BundleID      string
	Name          string
	Version       string
	ArchivePath   string
	ChecksumPath  string
	SignaturePath string
	GPGSigned     bool
	FileCount     int
	TotalSize     int64
}

// ChannelStatus is the lifecycle state recorded in channel metadata.
type ChannelStatus string

const (
	ChannelStatusImported ChannelStatus = "imported"
	ChannelStatusPromoted ChannelStatus = "promoted"
)

// ChannelMetadata names the exact bundle whose content currently
// occupies a lifecycle channel. It is replaced atomically together with
// the content tree, never edited in place.
type ChannelMetadata struct {
	BundleID      string        `json:"bundle_id"`
	ImportedAt    string        `json:"imported_at,omitempty"`
	PromotedAt    string        `json:"promoted_at,omitempty"`
	SourceChannel string        `json:"source_channel,omitempty"`
	Status        ChannelStatus `json:"status"`
}

// ImportReceipt records a completed verify-and-stage operation.
type ImportReceipt struct {
	BundleID          string
	Channel           string
	ImportedAt        string
	FileCount         int
	SignatureVerified bool
	ArchivedTo        string
}

// PromotionReceipt records a completed channel promotion.
type PromotionReceipt struct {
	BundleID   string
	From       string
	To         string
	PromotedAt string
	BackupPath string
}

// ChannelInfo is one row of a lifecycle status report.
type ChannelInfo struct {
	Name     string
	Empty    bool
	Metadata ChannelMetadata
}
