package log

import (
	"github.com/spf13/cobra"
)

const (
	verbosityFlag = "verbosity"
	formatFlag    = "log-format"
	outputFlag    = "log-output"
)

// AddFlagsToCommand adds the logging flags to the supplied command and binds
// them to cfg.
func AddFlagsToCommand(cmd *cobra.Command, cfg *Config) {
	cmd.PersistentFlags().IntVarP(&cfg.Verbosity,
		verbosityFlag,
		"v",
		LogVerbosityInfo,
		"The verbosity level of the logging. A level of 2 and above is debug logging. A level of 9 and above is tracing.")

	cmd.PersistentFlags().StringVar(&cfg.Format,
		formatFlag,
		FormatText,
		"The format of the logging output. Can be 'text' or 'json'.")

	cmd.PersistentFlags().StringVar(&cfg.Output,
		outputFlag,
		"stderr",
		"The output for logging. Supply a file path or one of the special values 'stderr' and 'stdout'.")
}
