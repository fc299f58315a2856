package app

import (
	"context"

	"gapsync/internal/adapters"
	"gapsync/internal/types"
)

// Promote copies a channel's content to another channel, backing up the
// displaced target content.
func (s Service) Promote(ctx context.Context, req PromoteRequest) (types.PromotionReceipt, error) {
	lifecycle := adapters.NewLifecycleStoreAdapter(req.ChannelsDir, s.Clock)
	return lifecycle.Promote(ctx, req.From, req.To)
}
