package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/meetprep/internal/config"
	"github.com/Aman-CERP/meetprep/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create configuration",
		Long: `Configuration is merged from, in increasing precedence:
  built-in defaults
  ~/.config/meetprep/config.yaml (or $XDG_CONFIG_HOME/meetprep/config.yaml)
  <dir>/.meetprep.yaml
  MEETPREP_* environment variables`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [dir]",
		Short: "Print the effective configuration for a corpus",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := corpusRoot(args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.New(cmd.OutOrStdout()).JSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force     bool
		corpusDir string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration template",
		Long: `Write the user configuration template, or with --corpus a
.meetprep.yaml in that corpus root. Every setting starts commented out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			if corpusDir != "" {
				root, err := corpusRoot([]string{corpusDir})
				if err != nil {
					return err
				}
				path, err := config.InitCorpusConfig(root, force)
				if err != nil {
					return err
				}
				out.Successf("Wrote %s", path)
				return nil
			}

			path, backup, err := config.InitUserConfig(force)
			if err != nil {
				return err
			}
			if backup != "" {
				out.Statusf("💾", "Previous config saved to %s", backup)
			}
			out.Successf("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config (a backup is kept)")
	cmd.Flags().StringVar(&corpusDir, "corpus", "", "Write the corpus config into this directory instead")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user configuration path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
