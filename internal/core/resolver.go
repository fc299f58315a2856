package core

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"gapsync/internal/types"
)

// ResolverCore computes the delta between a host's installed packages
// and the packages available in mirrored channel catalogs.
//
// Resolution is a pure function of its inputs: the same manifest and
// catalogs always produce the same report, record for record, so runs
// are reproducible for audit.
type ResolverCore struct{}

func NewResolverCore() ResolverCore {
	return ResolverCore{}
}

// Resolve emits one UpdateRecord per (channel, package) pair where the
// channel catalog carries a strictly newer build of an installed
// package. Absence of a package from a channel yields no record; the
// same package may be reported once per channel, and the operator
// chooses which channel's update to apply.
//
// computedAt is injected by the caller so that report output stays a
// function of the inputs alone.
func (r ResolverCore) Resolve(ctx context.Context, manifest types.HostManifest, catalogs types.ChannelCatalogs, profile string, computedAt string) types.HostUpdateReport {
	report := types.HostUpdateReport{
		HostID:     manifest.HostID,
		Profile:    profile,
		OSID:       manifest.OSRelease.ID,
		OSVersion:  manifest.OSRelease.Version,
		ComputedAt: computedAt,
		Updates:    []types.UpdateRecord{},
		Errors:     []string{},
	}

	if len(manifest.Packages) == 0 {
		report.Errors = append(report.Errors, "no packages found in manifest")
		return report
	}

	channels := make([]string, 0, len(catalogs))
	for channel := range catalogs {
		channels = append(channels, channel)
	}
	sort.Strings(channels)

	for _, channel := range channels {
		catalog := catalogs[channel]
		if len(catalog) == 0 {
			continue
		}
		for _, installed := range manifest.Packages {
			if installed.Name == "" || installed.Arch == "" {
				continue
			}
			available, ok := catalog[installed.Key()]
			if !ok {
				continue
			}
			if !IsNewer(installed.EVR(), available.EVR()) {
				continue
			}
			report.Updates = append(report.Updates, types.UpdateRecord{
				HostID:    manifest.HostID,
				Name:      installed.Name,
				Arch:      installed.Arch,
				Channel:   channel,
				Installed: installed.EVR(),
				Available: available.EVR(),
			})
		}
	}

	report.UpdateCount = len(report.Updates)
	log.Ctx(ctx).Debug().
		Str("host", manifest.HostID).
		Int("updates", report.UpdateCount).
		Msg("resolution completed")
	return report
}

// Summarize aggregates per-host reports into a fleet summary. Pure
// post-processing over the same records; report order is preserved.
func (r ResolverCore) Summarize(reports []types.HostUpdateReport, generatedAt string) types.FleetSummary {
	summary := types.FleetSummary{
		GeneratedAt: generatedAt,
		TotalHosts:  len(reports),
		Hosts:       []types.HostSummary{},
	}
	for _, report := range reports {
		summary.TotalUpdates += report.UpdateCount
		if report.UpdateCount > 0 {
			summary.HostsWithUpdates++
		}
		summary.Hosts = append(summary.Hosts, types.HostSummary{
			HostID:      report.HostID,
			Profile:     report.Profile,
			UpdateCount: report.UpdateCount,
		})
	}
	return summary
}
