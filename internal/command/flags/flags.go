package flags

import (
	"github.com/spf13/cobra"

	"ttreset/internal/config"
	"ttreset/pkg/defaults"
	"ttreset/pkg/models"
)

const (
	generationFlag     = "generation"
	coprocResetFlag    = "coproc"
	silentFlag         = "silent"
	postResetDelayFlag = "post-reset-delay"
	reportFlag         = "report"
	moboConfigFlag     = "config"
	bootTimeoutFlag    = "boot-timeout"
	outputFlag         = "output"
)

// AddResetFlagsToCommand will add the device reset flags to the supplied command.
func AddResetFlagsToCommand(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&cfg.Generation,
		generationFlag,
		string(models.GenerationWormhole),
		"The board generation, used to pick the fallback reset protocol on old drivers. One of 'wh' or 'bh'.")

	cmd.Flags().BoolVar(&cfg.CoprocReset,
		coprocResetFlag,
		false,
		"Also reset the onboard management co-processor. The settle window is much longer.")

	cmd.Flags().BoolVar(&cfg.Silent,
		silentFlag,
		false,
		"Suppress start/finish progress output.")

	cmd.Flags().DurationVar(&cfg.PostResetDelay,
		postResetDelayFlag,
		0,
		"Override the post-reset settle window for co-processor resets.")

	cmd.Flags().StringVar(&cfg.ReportPath,
		reportFlag,
		"",
		"Where to write the reset report. Empty writes to the default config directory, '-' disables the report.")
}

// AddMoboFlagsToCommand will add the rack-unit orchestration flags to the supplied command.
func AddMoboFlagsToCommand(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&cfg.MoboConfigPath,
		moboConfigFlag,
		"",
		"The reset config document declaring the rack units to warm boot.")

	cmd.Flags().DurationVar(&cfg.BootTimeout,
		bootTimeoutFlag,
		defaults.MoboBootTimeout,
		"The bound on the per-unit boot-progress wait.")

	_ = cmd.MarkFlagRequired(moboConfigFlag)
}

// AddGenerateFlagsToCommand will add the template generation flags to the supplied command.
func AddGenerateFlagsToCommand(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&cfg.OutputPath,
		outputFlag,
		"",
		"Where to write the config template. Empty writes to the default config directory.")
}
