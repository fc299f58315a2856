package app

import (
	"context"

	"gapsync/internal/adapters"
	"gapsync/internal/ports"
	"gapsync/internal/types"
)

// Import verifies a bundle archive end-to-end and stages its content
// into a lifecycle channel. Signature verification uses the key
// material carried inside the bundle itself.
func (s Service) Import(ctx context.Context, req ImportRequest) (types.ImportReceipt, error) {
	lifecycle := adapters.NewLifecycleStoreAdapter(req.ChannelsDir, s.Clock)
	reader := adapters.NewBundleReaderAdapter(lifecycle, req.ProcessedDir, adapters.NewGPGSignerAdapter(""), s.Clock)
	return reader.VerifyAndStage(ctx, req.ArchivePath, ports.ImportOptions{
		Channel:           req.Channel,
		VerifySignature:   req.VerifySignature,
		SignatureOptional: req.SignatureOptional,
	})
}
