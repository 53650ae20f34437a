package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eligibility/internal/config"
	"eligibility/internal/logger"
	"eligibility/internal/pipeline"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newRunCommand(flags *globalFlags) *cobra.Command {
	var (
		logLevel string
		partners []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every enabled partner and write the output datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := afero.NewOsFs()

			cfg, err := loadConfig(fs, flags)
			if err != nil {
				return err
			}

			if logLevel != "" {
				cfg.Pipeline.Logging.Level = logLevel
			}

			log := logger.NewLogger(cfg.Pipeline.Logging.Level, logger.WithFormat(cfg.Pipeline.Logging.Format))
			log.Debug("Configuration loaded", "config", cfg.String())

			set, err := config.LoadPartners(fs, cfg.Pipeline.PartnersDir)
			if err != nil {
				return err
			}

			set = set.Filter(partners)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, runErr := pipeline.New(cfg, fs, log).Run(ctx, set)
			if report != nil {
				if err := report.WriteSummary(cmd.OutOrStdout()); err != nil {
					return fmt.Errorf("failed to print summary: %w", err)
				}
			}

			return runErr
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringSliceVarP(&partners, "partner", "p", nil, "Only process these partner codes (repeatable)")

	return cmd
}
