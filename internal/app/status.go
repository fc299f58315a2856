package app

import (
	"context"

	"gapsync/internal/adapters"
)

// Status reports every lifecycle channel and its metadata.
func (s Service) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	lifecycle := adapters.NewLifecycleStoreAdapter(req.ChannelsDir, s.Clock)
	channels, err := lifecycle.Status(ctx)
	if err != nil {
		return StatusResult{}, err
	}
	backups, err := lifecycle.Backups()
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Channels: channels, Backups: backups}, nil
}
