package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"gapsync/internal/adapters"
	"gapsync/internal/policies"
	"gapsync/internal/types"
)

// Resolve computes update reports against the mirror for one host or
// the whole fleet, writes them to the output directory and returns the
// fleet summary. A host whose manifest is missing yields a report with
// an error entry rather than aborting the run.
func (s Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	arch := strings.TrimSpace(req.Arch)
	if arch == "" {
		arch = "x86_64"
	}

	store := adapters.NewManifestIndexAdapter(req.DataDir)
	catalogs := adapters.NewCatalogFileAdapter(req.MirrorDir)
	overrides, err := adapters.LoadProfileOverrides(req.ProfilePolicyPath)
	if err != nil {
		return ResolveResult{}, err
	}
	policy := policies.NewProfilePolicy(overrides)
	output := adapters.NewUpdateWriterAdapter(req.OutputDir)

	hosts := []string{req.HostID}
	if strings.TrimSpace(req.HostID) == "" {
		hosts, err = store.ListHosts()
		if err != nil {
			return ResolveResult{}, err
		}
		if len(hosts) == 0 {
			return ResolveResult{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("no host manifests have been ingested")
		}
	}

	computedAt := s.now().Format(time.RFC3339)
	reports := make([]types.HostUpdateReport, 0, len(hosts))
	for _, host := range hosts {
		report := s.resolveHost(ctx, store, catalogs, policy, host, arch, computedAt)
		if err := output.WriteUpdateReport(report); err != nil {
			return ResolveResult{}, err
		}
		reports = append(reports, report)
	}

	summary := s.Resolver.Summarize(reports, computedAt)
	if err := output.WriteFleetSummary(summary); err != nil {
		return ResolveResult{}, err
	}
	log.Ctx(ctx).Info().
		Int("hosts", summary.TotalHosts).
		Int("updates", summary.TotalUpdates).
		Msg("resolution run completed")
	return ResolveResult{
		Reports:   reports,
		Summary:   summary,
		OutputDir: req.OutputDir,
	}, nil
}

func (s Service) resolveHost(ctx context.Context, store adapters.ManifestIndexAdapter, catalogs *adapters.CatalogFileAdapter, policy policies.ProfilePolicy, host string, arch string, computedAt string) types.HostUpdateReport {
	manifest, err := store.Latest(host)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("host", host).Msg("no manifest for host")
		return types.HostUpdateReport{
			HostID:     host,
			Profile:    "unknown",
			OSID:       "unknown",
			OSVersion:  "unknown",
			ComputedAt: computedAt,
			Updates:    []types.UpdateRecord{},
			Errors:     []string{fmt.Sprintf("manifest not found for host: %s", host)},
		}
	}

	profile := policy.ProfileFor(manifest.OSRelease.ID, manifest.OSRelease.Version)
	channels, err := catalogs.Channels(profile, arch)
	if err != nil {
		return errorReport(manifest, profile, computedAt, err)
	}
	channelCatalogs := types.ChannelCatalogs{}
	for _, channel := range channels {
		catalog, err := catalogs.LoadCatalog(profile, arch, channel)
		if err != nil {
			return errorReport(manifest, profile, computedAt, err)
		}
		channelCatalogs[channel] = catalog
	}
	return s.Resolver.Resolve(ctx, manifest, channelCatalogs, profile, computedAt)
}

func errorReport(manifest types.HostManifest, profile string, computedAt string, err error) types.HostUpdateReport {
	return types.HostUpdateReport{
		HostID:     manifest.HostID,
		Profile:    profile,
		OSID:       manifest.OSRelease.ID,
		OSVersion:  manifest.OSRelease.Version,
		ComputedAt: computedAt,
		Updates:    []types.UpdateRecord{},
		Errors:     []string{err.Error()},
	}
}
