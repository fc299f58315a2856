package ports

import (
	"context"

	"gapsync/internal/types"
)

// LifecyclePort manages promotion of verified content between channels.
type LifecyclePort interface {
	// Promote copies the from-channel's content into to, displacing any
	// prior content into a timestamped backup. Readers of to never see
	// a mix of old and new trees.
	Promote(ctx context.Context, from string, to string) (types.PromotionReceipt, error)

	// Status reports every channel's current metadata.
	Status(ctx context.Context) ([]types.ChannelInfo, error)
}
