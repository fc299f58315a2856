package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gapsync/internal/app"
	"gapsync/internal/shared"
)

type resolveOptions struct {
	DataDir       string
	MirrorDir     string
	OutputDir     string
	HostID        string
	All           bool
	Arch          string
	ProfilePolicy string
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Compute available updates for one host or the whole fleet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DataDir, "data", "data", "Manifest store directory")
	cmd.Flags().StringVar(&opts.MirrorDir, "mirror", "mirror", "Mirrored repository directory")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "updates", "Update report output directory")
	cmd.Flags().StringVar(&opts.HostID, "host", "", "Host ID (empty resolves every host)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Resolve every indexed host")
	cmd.Flags().StringVar(&opts.Arch, "arch", "x86_64", "Package architecture")
	cmd.Flags().StringVar(&opts.ProfilePolicy, "profile-policy", "", "Profile override policy file")

	_ = viper.BindPFlag("data", cmd.Flags().Lookup("data"))
	_ = viper.BindPFlag("mirror", cmd.Flags().Lookup("mirror"))
	_ = viper.BindPFlag("resolve_output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("all", cmd.Flags().Lookup("all"))
	_ = viper.BindPFlag("arch", cmd.Flags().Lookup("arch"))
	_ = viper.BindPFlag("profile_policy", cmd.Flags().Lookup("profile-policy"))

	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, opts resolveOptions) error {
	host := resolveString(cmd, opts.HostID, "host", "host")
	if resolveBool(cmd, opts.All, "all", "all") {
		host = ""
	}
	service := newAppService()
	result, err := service.Resolve(ctx, app.ResolveRequest{
		DataDir:           resolveString(cmd, opts.DataDir, "data", "data"),
		MirrorDir:         resolveString(cmd, opts.MirrorDir, "mirror", "mirror"),
		OutputDir:         resolveString(cmd, opts.OutputDir, "resolve_output", "output"),
		HostID:            host,
		Arch:              resolveString(cmd, opts.Arch, "arch", "arch"),
		ProfilePolicyPath: resolveString(cmd, opts.ProfilePolicy, "profile_policy", "profile-policy"),
	})
	if err != nil {
		return err
	}
	// For a single host, list the individual updates; fleet runs get the
	// summary line only.
	if len(result.Reports) == 1 {
		for _, update := range result.Reports[0].Updates {
			fmt.Printf("%s.%s: %s -> %s (%s)\n",
				update.Name, update.Arch,
				shared.FormatEVR(update.Installed.Epoch, update.Installed.Version, update.Installed.Release),
				shared.FormatEVR(update.Available.Epoch, update.Available.Version, update.Available.Release),
				update.Channel)
		}
	}
	fmt.Printf("resolved %d host(s): %d update(s) across %d host(s) with updates\n",
		result.Summary.TotalHosts, result.Summary.TotalUpdates, result.Summary.HostsWithUpdates)
	fmt.Printf("reports written to %s\n", result.OutputDir)
	return nil
}
