package app

import (
	"context"
	"strings"

	"gapsync/internal/adapters"
	"gapsync/internal/ports"
	"gapsync/internal/types"
)

// Export packages the mirror, key material and any update reports into
// a transportable bundle archive. With no signing key configured the
// bundle is exported unsigned.
func (s Service) Export(ctx context.Context, req ExportRequest) (types.ExportedBundle, error) {
	var signer ports.SignerPort
	if strings.TrimSpace(req.SigningKeyPath) != "" {
		signer = adapters.NewGPGSignerAdapter(req.SigningKeyPath)
	}
	writer := adapters.NewBundleWriterAdapter(req.OutputDir, signer, s.Clock)
	return writer.Export(ctx, req.Name, req.Version, ports.ExportSources{
		MirrorDir:  req.MirrorDir,
		KeysDir:    req.KeysDir,
		UpdatesDir: req.UpdatesDir,
	})
}
