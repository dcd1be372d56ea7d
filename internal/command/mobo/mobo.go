package mobo

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	cmdflags "ttreset/internal/command/flags"
	"ttreset/internal/config"
	"ttreset/pkg/devctl"
	"ttreset/pkg/flags"
	"ttreset/pkg/hypervisor"
	"ttreset/pkg/log"
	"ttreset/pkg/mobo"
	"ttreset/pkg/pcibus"
	"ttreset/pkg/ports"
	"ttreset/pkg/reset"
	"ttreset/pkg/system"
)

// NewCommand builds the rack-unit warm-boot subcommand.
func NewCommand(cfg *config.Config) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "mobo",
		Short: "Warm boot the rack units declared in a reset config document",
		PreRunE: func(c *cobra.Command, _ []string) error {
			flags.BindCommandToViper(c)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	cmdflags.AddMoboFlagsToCommand(cmd, cfg)

	return cmd, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := log.GetLogger(ctx)
	fs := afero.NewOsFs()

	document, err := reset.LoadConfig(fs, cfg.MoboConfigPath)
	if err != nil {
		return err
	}

	mobos := document.ActiveMobos()
	if len(mobos) == 0 {
		logger.Info("No rack units declared in the config, nothing to do")

		return nil
	}

	collection := ports.Collection{
		Control:  devctl.New(),
		Topology: pcibus.NewTopologyWithFs(fs),
		Host:     system.NewHostWithFs(fs),
	}

	if hypervisor.IsHVMGuest(fs) {
		collection.ControlStore = hypervisor.NewXenStoreClient()
	}

	sequencer := reset.New(collection, fs)
	orchestrator := mobo.NewOrchestrator(mobo.NewClient(), sequencer).
		WithDriverGate(collection.Host).
		WithBootTimeout(cfg.BootTimeout)

	return orchestrator.WarmBoot(ctx, mobos)
}
