package app

import "gapsync/internal/types"

type IngestRequest struct {
	DataDir string

	// ManifestPath names a JSON host manifest. Mutually exclusive with
	// PackageListPath.
	ManifestPath string

	// PackageListPath names a raw rpm -qa capture; the remaining fields
	// supply the host identity the capture lacks.
	PackageListPath string
	HostID          string
	OSID            string
	OSVersion       string
	CapturedAt      string
}

type IngestResult struct {
	HostID        string
	PackageCount  int
	ManifestCount int
}

type HostsRequest struct {
	DataDir string
}

type HostsResult struct {
	Hosts []string
}

type ResolveRequest struct {
	DataDir           string
	MirrorDir         string
	OutputDir         string
	HostID            string // empty resolves the whole fleet
	Arch              string
	ProfilePolicyPath string
}

type ResolveResult struct {
	Reports   []types.HostUpdateReport
	Summary   types.FleetSummary
	OutputDir string
}

type ExportRequest struct {
	Name           string
	Version        string
	MirrorDir      string
	KeysDir        string
	UpdatesDir     string
	OutputDir      string
	SigningKeyPath string
}

type ImportRequest struct {
	ArchivePath       string
	ChannelsDir       string
	ProcessedDir      string
	Channel           string
	VerifySignature   bool
	SignatureOptional bool
}

type PromoteRequest struct {
	ChannelsDir string
	From        string
	To          string
}

type StatusRequest struct {
	ChannelsDir string
}

type StatusResult struct {
	Channels []types.ChannelInfo
	Backups  []string
}
