package reset

import (
	"context"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	cmdflags "ttreset/internal/command/flags"
	"ttreset/internal/config"
	"ttreset/pkg/devctl"
	"ttreset/pkg/flags"
	"ttreset/pkg/hypervisor"
	"ttreset/pkg/log"
	"ttreset/pkg/models"
	"ttreset/pkg/pcibus"
	"ttreset/pkg/ports"
	"ttreset/pkg/reset"
	"ttreset/pkg/system"
)

// NewCommand builds the device reset subcommand.
func NewCommand(cfg *config.Config) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "reset <pci-indices|config-file>",
		Short: "Reset devices by PCI index or from a reset config document",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(c *cobra.Command, _ []string) error {
			flags.BindCommandToViper(c)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, args[0])
		},
	}

	cmdflags.AddResetFlagsToCommand(cmd, cfg)

	return cmd, nil
}

func run(ctx context.Context, cfg *config.Config, input string) error {
	logger := log.GetLogger(ctx)
	fs := afero.NewOsFs()

	document, ids, err := reset.ParseInput(fs, input)
	if err != nil {
		return err
	}

	if document != nil {
		ids = document.LinkResetIDs
	}

	if len(ids) == 0 {
		logger.Info("No devices to reset")

		return nil
	}

	sequencer := newSequencer(fs)

	req := models.ResetRequest{
		DeviceIDs:               ids,
		TriggerCoprocessorReset: cfg.CoprocReset,
		Silent:                  cfg.Silent,
		PostResetDelayOverride:  cfg.PostResetDelay,
		Generation:              models.Generation(cfg.Generation),
	}

	outcomes, resetErr := sequencer.Reset(ctx, req)

	if len(outcomes) > 0 && !cfg.Silent {
		reset.PrintOutcomes(os.Stdout, outcomes)
	}

	if cfg.ReportPath != "-" {
		host := system.NewHost()

		report := reset.NewReport(host.Hostname(), reportConfig(document, ids), outcomes)
		if path, err := report.Save(fs, cfg.ReportPath); err != nil {
			logger.Warnf("Failed to save reset report: %v", err)
		} else {
			logger.Debugf("Reset report saved to %s", path)
		}
	}

	return resetErr
}

func newSequencer(fs afero.Fs) *reset.Sequencer {
	collection := ports.Collection{
		Control:  devctl.New(),
		Topology: pcibus.NewTopologyWithFs(fs),
		Host:     system.NewHostWithFs(fs),
	}

	if hypervisor.IsHVMGuest(fs) {
		collection.ControlStore = hypervisor.NewXenStoreClient()
	}

	return reset.New(collection, fs)
}

func reportConfig(document *models.ResetConfig, ids []int) models.ResetConfig {
	if document != nil {
		return *document
	}

	return models.ResetConfig{LinkResetIDs: ids}
}

