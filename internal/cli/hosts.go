package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gapsync/internal/app"
)

type hostsOptions struct {
	DataDir string
}

func newHostsCommand() *cobra.Command {
	opts := hostsOptions{}
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List hosts known to the manifest store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHosts(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.DataDir, "data", "data", "Manifest store directory")
	_ = viper.BindPFlag("data", cmd.Flags().Lookup("data"))
	return cmd
}

func runHosts(ctx context.Context, cmd *cobra.Command, opts hostsOptions) error {
	service := newAppService()
	result, err := service.Hosts(ctx, app.HostsRequest{
		DataDir: resolveString(cmd, opts.DataDir, "data", "data"),
	})
	if err != nil {
		return err
	}
	for _, host := range result.Hosts {
		fmt.Println(host)
	}
	return nil
}
