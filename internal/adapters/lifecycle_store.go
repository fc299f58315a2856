package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"gapsync/internal/ports"
	"gapsync/internal/types"
)

// channelMetadataFileName lives inside each channel tree so that the
// rename swap replaces content and metadata together, atomically.
const channelMetadataFileName = ".channel_metadata.json"

// LifecycleStoreAdapter manages the named channel trees under Root
// (testing, stable, ...). Writers stage a complete sibling tree and
// swap it in with a single rename, so channel readers never observe a
// mix of old and new content. Displaced stable trees move to
// Root/backups with a timestamp and are never deleted automatically.
//
// Import and promotion against the same channel are serialized with an
// advisory flock held for the duration of the operation.
type LifecycleStoreAdapter struct {
	Root  string
	Clock func() time.Time
}

func NewLifecycleStoreAdapter(root string, clock func() time.Time) LifecycleStoreAdapter {
	if clock == nil {
		clock = time.Now
	}
	return LifecycleStoreAdapter{Root: root, Clock: clock}
}

// Stage replaces the channel's content with a copy of contentDir plus
// the given metadata. Used by bundle import to land verified content in
// testing; prior content of the channel is discarded, not backed up.
func (s LifecycleStoreAdapter) Stage(ctx context.Context, channel string, contentDir string, meta types.ChannelMetadata) error {
	if err := s.validateChannel(channel); err != nil {
		return err
	}
	release, err := s.lockChannel(ctx, channel)
	if err != nil {
		return err
	}
	defer release()

	incoming := filepath.Join(s.Root, ".incoming-"+channel)
	if err := os.RemoveAll(incoming); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to clear incoming directory").
			WithCause(err)
	}
	if err := copyTree(contentDir, incoming); err != nil {
		os.RemoveAll(incoming)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage channel content").
			WithCause(err)
	}
	if err := writeJSONAtomic(filepath.Join(incoming, channelMetadataFileName), meta); err != nil {
		os.RemoveAll(incoming)
		return err
	}
	if err := s.swapIn(channel, incoming, ""); err != nil {
		os.RemoveAll(incoming)
		return err
	}
	log.Ctx(ctx).Info().
		Str("channel", channel).
		Str("bundle", meta.BundleID).
		Msg("channel content staged")
	return nil
}

func (s LifecycleStoreAdapter) Promote(ctx context.Context, from string, to string) (types.PromotionReceipt, error) {
	if err := s.validateChannel(from); err != nil {
		return types.PromotionReceipt{}, err
	}
	if err := s.validateChannel(to); err != nil {
		return types.PromotionReceipt{}, err
	}
	if from == to {
		return types.PromotionReceipt{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("source and target channel are the same")
	}

	// Locks are taken in sorted order so two concurrent promotions
	// touching the same pair cannot deadlock.
	ordered := []string{from, to}
	sort.Strings(ordered)
	for _, channel := range ordered {
		release, err := s.lockChannel(ctx, channel)
		if err != nil {
			return types.PromotionReceipt{}, err
		}
		defer release()
	}

	fromDir := filepath.Join(s.Root, from)
	if empty, err := s.channelEmpty(from); err != nil {
		return types.PromotionReceipt{}, err
	} else if empty {
		return types.PromotionReceipt{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("channel %s is empty", from))
	}
	// Second integrity gate: the source tree must still carry coherent
	// repository metadata, independent of what import verified.
	if err := ValidateRepoTree(filepath.Join(fromDir, "repos")); err != nil {
		return types.PromotionReceipt{}, err
	}
	fromMeta, err := s.Metadata(from)
	if err != nil {
		return types.PromotionReceipt{}, err
	}

	now := s.Clock().UTC()
	staging := filepath.Join(s.Root, ".promote-"+to)
	if err := os.RemoveAll(staging); err != nil {
		return types.PromotionReceipt{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to clear promotion staging directory").
			WithCause(err)
	}
	if err := copyTree(fromDir, staging); err != nil {
		os.RemoveAll(staging)
		return types.PromotionReceipt{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage promotion content").
			WithCause(err)
	}
	meta := types.ChannelMetadata{
		BundleID:      fromMeta.BundleID,
		ImportedAt:    fromMeta.ImportedAt,
		PromotedAt:    now.Format(time.RFC3339),
		SourceChannel: from,
		Status:        types.ChannelStatusPromoted,
	}
	if err := writeJSONAtomic(filepath.Join(staging, channelMetadataFileName), meta); err != nil {
		os.RemoveAll(staging)
		return types.PromotionReceipt{}, err
	}

	backupPath := filepath.Join(s.Root, "backups", fmt.Sprintf("%s-%s", to, now.Format("20060102T150405Z")))
	if err := s.swapIn(to, staging, backupPath); err != nil {
		os.RemoveAll(staging)
		return types.PromotionReceipt{}, err
	}

	receipt := types.PromotionReceipt{
		BundleID:   fromMeta.BundleID,
		From:       from,
		To:         to,
		PromotedAt: meta.PromotedAt,
		BackupPath: backupPath,
	}
	log.Ctx(ctx).Info().
		Str("bundle", receipt.BundleID).
		Str("from", from).
		Str("to", to).
		Str("backup", backupPath).
		Msg("channel promoted")
	return receipt, nil
}

func (s LifecycleStoreAdapter) Status(ctx context.Context) ([]types.ChannelInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.ChannelInfo{}, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read channels root").
			WithCause(err)
	}
	infos := []types.ChannelInfo{}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") || name == "backups" {
			continue
		}
		info := types.ChannelInfo{Name: name}
		meta, err := s.Metadata(name)
		if err != nil {
			info.Empty = true
		} else {
			info.Metadata = meta
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Backups lists the timestamped backup trees displaced by promotions,
// newest last.
func (s LifecycleStoreAdapter) Backups() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, "backups"))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read backups directory").
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

// Metadata reads a channel's metadata file.
func (s LifecycleStoreAdapter) Metadata(channel string) (types.ChannelMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, channel, channelMetadataFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return types.ChannelMetadata{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("channel %s has no metadata", channel))
		}
		return types.ChannelMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read channel metadata").
			WithCause(err)
	}
	var meta types.ChannelMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return types.ChannelMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("channel metadata is not valid JSON").
			WithCause(err)
	}
	return meta, nil
}

// swapIn atomically substitutes the channel directory with staged. The
// displaced tree moves to backupPath when given, otherwise to a
// temporary name that is removed after the swap.
func (s LifecycleStoreAdapter) swapIn(channel string, staged string, backupPath string) error {
	live := filepath.Join(s.Root, channel)
	displaced := ""
	if _, err := os.Stat(live); err == nil {
		displaced = backupPath
		if displaced == "" {
			displaced = filepath.Join(s.Root, fmt.Sprintf(".replaced-%s-%d", channel, s.Clock().UnixNano()))
		}
		if err := os.MkdirAll(filepath.Dir(displaced), 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create backup directory").
				WithCause(err)
		}
		if err := os.Rename(live, displaced); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to move previous channel content aside").
				WithCause(err)
		}
	}
	if err := os.Rename(staged, live); err != nil {
		// Put the previous content back; the channel must not be left
		// missing because the swap could not complete.
		if displaced != "" {
			if restoreErr := os.Rename(displaced, live); restoreErr != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("channel swap failed and restore failed: " + restoreErr.Error()).
					WithCause(err)
			}
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to swap channel content into place").
			WithCause(err)
	}
	if backupPath == "" && displaced != "" {
		if err := os.RemoveAll(displaced); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to remove replaced channel content").
				WithCause(err)
		}
	}
	return nil
}

func (s LifecycleStoreAdapter) channelEmpty(channel string) (bool, error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, channel))
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read channel directory").
			WithCause(err)
	}
	for _, entry := range entries {
		if entry.Name() != channelMetadataFileName {
			return false, nil
		}
	}
	return true, nil
}

func (s LifecycleStoreAdapter) validateChannel(channel string) error {
	if strings.TrimSpace(channel) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("channel name is empty")
	}
	if strings.ContainsAny(channel, "/\\") || strings.HasPrefix(channel, ".") || channel == "backups" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid channel name: " + channel)
	}
	return nil
}

// lockChannel takes the channel's advisory lock, blocking briefly for a
// concurrent holder. The returned function releases the lock.
func (s LifecycleStoreAdapter) lockChannel(ctx context.Context, channel string) (func(), error) {
	locksDir := filepath.Join(s.Root, ".locks")
	if err := os.MkdirAll(locksDir, 0755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create locks directory").
			WithCause(err)
	}
	lock := flock.New(filepath.Join(locksDir, channel+".lock"))
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to acquire channel lock").
			WithCause(err)
	}
	if !locked {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("channel is locked by another operation: " + channel)
	}
	return func() { lock.Unlock() }, nil
}

var _ ports.LifecyclePort = LifecycleStoreAdapter{}
