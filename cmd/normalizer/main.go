// Package main provides the normalizer command that turns partner eligibility
// files into the canonical processed, error and unified datasets.
package main

import (
	"fmt"
	"os"

	"eligibility/internal/config"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	partnersDir string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "normalizer",
		Short:         "Normalize partner eligibility files into a unified dataset",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Pipeline configuration file (defaults are used when empty)")
	cmd.PersistentFlags().StringVar(&flags.partnersDir, "partners-dir", "", "Directory of partner configuration files")

	cmd.AddCommand(newRunCommand(flags))
	cmd.AddCommand(newCheckCommand(flags))
	cmd.AddCommand(newVerifyCommand(flags))

	return cmd
}

// loadConfig reads the pipeline configuration from the OS filesystem and
// applies command-line overrides.
func loadConfig(fs afero.Fs, flags *globalFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if flags.configPath != "" {
		loaded, err := config.LoadConfig(fs, flags.configPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if flags.partnersDir != "" {
		cfg.Pipeline.PartnersDir = flags.partnersDir
	}

	return cfg, nil
}
