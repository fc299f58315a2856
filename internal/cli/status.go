package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gapsync/internal/app"
)

type statusOptions struct {
	ChannelsDir string
}

func newStatusCommand() *cobra.Command {
	opts := statusOptions{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show every channel and the bundle it carries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ChannelsDir, "channels", "channels", "Channel root directory")
	_ = viper.BindPFlag("channels", cmd.Flags().Lookup("channels"))
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, opts statusOptions) error {
	service := newAppService()
	result, err := service.Status(ctx, app.StatusRequest{
		ChannelsDir: resolveString(cmd, opts.ChannelsDir, "channels", "channels"),
	})
	if err != nil {
		return err
	}
	if len(result.Channels) == 0 {
		fmt.Println("no channels")
		return nil
	}
	for _, channel := range result.Channels {
		if channel.Empty {
			fmt.Printf("%s: empty\n", channel.Name)
			continue
		}
		line := fmt.Sprintf("%s: %s (%s", channel.Name, channel.Metadata.BundleID, channel.Metadata.Status)
		if channel.Metadata.PromotedAt != "" {
			line += ", promoted " + channel.Metadata.PromotedAt + " from " + channel.Metadata.SourceChannel
		} else {
			line += ", imported " + channel.Metadata.ImportedAt
		}
		fmt.Println(line + ")")
	}
	if len(result.Backups) > 0 {
		fmt.Printf("backups: %d (latest %s)\n", len(result.Backups), result.Backups[len(result.Backups)-1])
	}
	return nil
}
