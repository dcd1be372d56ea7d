package generate

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	cmdflags "ttreset/internal/command/flags"
	"ttreset/internal/config"
	"ttreset/pkg/flags"
	"ttreset/pkg/log"
	"ttreset/pkg/reset"
	"ttreset/pkg/system"
)

// NewCommand builds the config template generation subcommand.
func NewCommand(cfg *config.Config) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an editable reset config template",
		PreRunE: func(c *cobra.Command, _ []string) error {
			flags.BindCommandToViper(c)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	cmdflags.AddGenerateFlagsToCommand(cmd, cfg)

	return cmd, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := log.GetLogger(ctx)
	fs := afero.NewOsFs()
	host := system.NewHost()

	path, err := reset.GenerateConfigTemplate(fs, host.Hostname(), nil, cfg.OutputPath)
	if err != nil {
		return err
	}

	logger.Infof("Config template written to %s. Fill in the rack-unit entries before running 'tt-reset mobo'.", path)

	return nil
}
