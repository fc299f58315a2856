package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gapsync/internal/app"
)

type promoteOptions struct {
	ChannelsDir string
	From        string
	To          string
}

func newPromoteCommand() *cobra.Command {
	opts := promoteOptions{}
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote channel content, backing up the displaced target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPromote(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ChannelsDir, "channels", "channels", "Channel root directory")
	cmd.Flags().StringVar(&opts.From, "from", "testing", "Source channel")
	cmd.Flags().StringVar(&opts.To, "to", "stable", "Target channel")

	_ = viper.BindPFlag("channels", cmd.Flags().Lookup("channels"))
	_ = viper.BindPFlag("from", cmd.Flags().Lookup("from"))
	_ = viper.BindPFlag("to", cmd.Flags().Lookup("to"))

	return cmd
}

func runPromote(ctx context.Context, cmd *cobra.Command, opts promoteOptions) error {
	service := newAppService()
	receipt, err := service.Promote(ctx, app.PromoteRequest{
		ChannelsDir: resolveString(cmd, opts.ChannelsDir, "channels", "channels"),
		From:        resolveString(cmd, opts.From, "from", "from"),
		To:          resolveString(cmd, opts.To, "to", "to"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("promoted %s: %s -> %s\n", receipt.BundleID, receipt.From, receipt.To)
	fmt.Printf("previous %s content backed up to %s\n", receipt.To, receipt.BackupPath)
	return nil
}
