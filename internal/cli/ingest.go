package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gapsync/internal/app"
)

type ingestOptions struct {
	DataDir     string
	Manifest    string
	PackageList string
	HostID      string
	OSID        string
	OSVersion   string
	CapturedAt  string
}

func newIngestCommand() *cobra.Command {
	opts := ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a host manifest or raw package list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DataDir, "data", "data", "Manifest store directory")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "Host manifest JSON file")
	cmd.Flags().StringVar(&opts.PackageList, "package-list", "", "Raw rpm -qa package list file")
	cmd.Flags().StringVar(&opts.HostID, "host", "", "Host ID (package list only)")
	cmd.Flags().StringVar(&opts.OSID, "os-id", "rhel", "OS ID (package list only)")
	cmd.Flags().StringVar(&opts.OSVersion, "os-version", "", "OS version (package list only)")
	cmd.Flags().StringVar(&opts.CapturedAt, "captured-at", "", "Capture timestamp, RFC 3339 (package list only)")

	_ = viper.BindPFlag("data", cmd.Flags().Lookup("data"))
	_ = viper.BindPFlag("manifest", cmd.Flags().Lookup("manifest"))
	_ = viper.BindPFlag("package_list", cmd.Flags().Lookup("package-list"))
	_ = viper.BindPFlag("host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("os_id", cmd.Flags().Lookup("os-id"))
	_ = viper.BindPFlag("os_version", cmd.Flags().Lookup("os-version"))
	_ = viper.BindPFlag("captured_at", cmd.Flags().Lookup("captured-at"))

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, opts ingestOptions) error {
	service := newAppService()
	result, err := service.Ingest(ctx, app.IngestRequest{
		DataDir:         resolveString(cmd, opts.DataDir, "data", "data"),
		ManifestPath:    resolveString(cmd, opts.Manifest, "manifest", "manifest"),
		PackageListPath: resolveString(cmd, opts.PackageList, "package_list", "package-list"),
		HostID:          resolveString(cmd, opts.HostID, "host", "host"),
		OSID:            resolveString(cmd, opts.OSID, "os_id", "os-id"),
		OSVersion:       resolveString(cmd, opts.OSVersion, "os_version", "os-version"),
		CapturedAt:      resolveString(cmd, opts.CapturedAt, "captured_at", "captured-at"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("ingested: %s (%d packages, %d manifests on record)\n", result.HostID, result.PackageCount, result.ManifestCount)
	return nil
}
