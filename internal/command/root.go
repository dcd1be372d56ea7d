package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ttreset/internal/command/generate"
	"ttreset/internal/command/mobo"
	"ttreset/internal/command/reset"
	"ttreset/internal/config"
	"ttreset/internal/version"
	"ttreset/pkg/flags"
	"ttreset/pkg/log"
)

// NewRootCommand builds the tt-reset command tree.
func NewRootCommand() (*cobra.Command, error) {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "tt-reset",
		Short: "tt-reset - reset orchestration for Tenstorrent PCIe devices",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flags.BindCommandToViper(cmd)

			if err := log.Configure(&cfg.Logging); err != nil {
				return fmt.Errorf("configuring logging: %w", err)
			}

			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error {
			return c.Help()
		},
	}

	log.AddFlagsToCommand(cmd, &cfg.Logging)

	if err := addRootSubCommands(cmd, cfg); err != nil {
		return nil, fmt.Errorf("adding subcommands: %w", err)
	}

	cobra.OnInitialize(initCobra)

	return cmd, nil
}

func initCobra() {
	viper.SetEnvPrefix("TT_RESET")
	viper.AutomaticEnv()
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")

	viper.AddConfigPath("$HOME/.config/tenstorrent/")

	_ = viper.ReadInConfig()
}

func addRootSubCommands(cmd *cobra.Command, cfg *config.Config) error {
	resetCmd, err := reset.NewCommand(cfg)
	if err != nil {
		return fmt.Errorf("creating reset command: %w", err)
	}

	moboCmd, err := mobo.NewCommand(cfg)
	if err != nil {
		return fmt.Errorf("creating mobo command: %w", err)
	}

	generateCmd, err := generate.NewCommand(cfg)
	if err != nil {
		return fmt.Errorf("creating generate command: %w", err)
	}

	cmd.AddCommand(resetCmd)
	cmd.AddCommand(moboCmd)
	cmd.AddCommand(generateCmd)
	cmd.AddCommand(versionCommand())

	return nil
}

func versionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tt-reset",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				long, short bool
				err         error
			)

			if long, err = cmd.Flags().GetBool("long"); err != nil {
				return err
			}

			if short, err = cmd.Flags().GetBool("short"); err != nil {
				return err
			}

			if short {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)

				return nil
			}

			if long {
				fmt.Fprintf(
					cmd.OutOrStdout(),
					"%s\n  Version:    %s\n  CommitHash: %s\n  BuildDate:  %s\n",
					version.PackageName,
					version.Version,
					version.CommitHash,
					version.BuildDate,
				)

				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.PackageName, version.Version)

			return nil
		},
	}

	_ = cmd.Flags().Bool("long", false, "Print long version information")
	_ = cmd.Flags().Bool("short", false, "Print short version information")

	return cmd
}
