package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gapsync/internal/app"
)

type exportOptions struct {
	Name       string
	Version    string
	MirrorDir  string
	KeysDir    string
	UpdatesDir string
	OutputDir  string
	SigningKey string
}

func newExportCommand() *cobra.Command {
	opts := exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Package the mirror into a transportable bundle archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "rhel-updates", "Bundle name")
	cmd.Flags().StringVar(&opts.Version, "bundle-version", "", "Bundle version (default: next date sequence)")
	cmd.Flags().StringVar(&opts.MirrorDir, "mirror", "mirror", "Mirrored repository directory")
	cmd.Flags().StringVar(&opts.KeysDir, "keys", "", "GPG public key directory to carry in the bundle")
	cmd.Flags().StringVar(&opts.UpdatesDir, "updates", "", "Update report directory to carry in the bundle")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "bundles", "Bundle output directory")
	cmd.Flags().StringVar(&opts.SigningKey, "signing-key", "", "Armored GPG private key for detached signing")

	_ = viper.BindPFlag("name", cmd.Flags().Lookup("name"))
	_ = viper.BindPFlag("bundle_version", cmd.Flags().Lookup("bundle-version"))
	_ = viper.BindPFlag("mirror", cmd.Flags().Lookup("mirror"))
	_ = viper.BindPFlag("keys", cmd.Flags().Lookup("keys"))
	_ = viper.BindPFlag("updates", cmd.Flags().Lookup("updates"))
	_ = viper.BindPFlag("export_output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("signing_key", cmd.Flags().Lookup("signing-key"))

	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, opts exportOptions) error {
	service := newAppService()
	bundle, err := service.Export(ctx, app.ExportRequest{
		Name:           resolveString(cmd, opts.Name, "name", "name"),
		Version:        resolveString(cmd, opts.Version, "bundle_version", "bundle-version"),
		MirrorDir:      resolveString(cmd, opts.MirrorDir, "mirror", "mirror"),
		KeysDir:        resolveString(cmd, opts.KeysDir, "keys", "keys"),
		UpdatesDir:     resolveString(cmd, opts.UpdatesDir, "updates", "updates"),
		OutputDir:      resolveString(cmd, opts.OutputDir, "export_output", "output"),
		SigningKeyPath: resolveString(cmd, opts.SigningKey, "signing_key", "signing-key"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported bundle: %s (%d files, %d bytes, signed=%t)\n", bundle.BundleID, bundle.FileCount, bundle.TotalSize, bundle.GPGSigned)
	fmt.Printf("archive: %s\n", bundle.ArchivePath)
	return nil
}
