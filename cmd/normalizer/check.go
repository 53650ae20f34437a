package main

import (
	"errors"
	"fmt"

	"eligibility/internal/config"
	"eligibility/internal/formatter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errInvalidPartners = errors.New("one or more partner configurations are invalid")

func newCheckCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the pipeline and partner configuration files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := afero.NewOsFs()

			cfg, err := loadConfig(fs, flags)
			if err != nil {
				return err
			}

			set, err := config.LoadPartners(fs, cfg.Pipeline.PartnersDir)
			if err != nil {
				return err
			}

			header := []string{"Partner", "Config", "Input", "Delimiter", "Status"}
			rows := make([][]string, 0, len(set.Partners)+len(set.Invalid))

			for _, p := range set.Partners {
				status := "ok"
				if !p.IsEnabled() {
					status = "disabled"
				}

				rows = append(rows, []string{
					p.PartnerCode,
					p.Source,
					p.ResolvePath(cfg.Pipeline.InputRoot),
					fmt.Sprintf("%q", p.Delimiter),
					status,
				})
			}

			for _, pe := range set.Invalid {
				rows = append(rows, []string{pe.PartnerCode, pe.File, "", "", "INVALID: " + pe.Err.Error()})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Partners directory: %s\n", cfg.Pipeline.PartnersDir)
			fmt.Fprint(out, formatter.Render(header, rows))

			if len(set.Invalid) > 0 {
				return fmt.Errorf("%w (%d)", errInvalidPartners, len(set.Invalid))
			}

			return nil
		},
	}
}
