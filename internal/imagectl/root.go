// Package imagectl holds the maintenance commands run against the image host stores.
package imagectl

import (
	"fmt"

	"github.com/jo-hoe/imagehost/internal/core"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func NewRootCmd() *cobra.Command {
	options := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "imagectl",
		Short: "Maintenance tool for the image host",
		Long: `imagectl works directly on the metadata and blob stores configured for the
image host server. Badger stores are locked by a running server, so stop the
server first when using the badger backend.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			if options.configPath == "" {
				options.configPath = core.ConfigPath()
			}
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&options.configPath, "config", "c", "", "path to config.yaml (defaults to CONFIG_PATH or ./config.yaml)")

	cmd.AddCommand(newReconcileCmd(options))
	cmd.AddCommand(newUsersCmd(options))

	return cmd
}

func (o *rootOptions) openImageService() (*core.ImageService, error) {
	config, err := core.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	service, err := core.NewImageService(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open stores: %w", err)
	}
	return service, nil
}
