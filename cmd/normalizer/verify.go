package main

import (
	"errors"
	"fmt"

	"eligibility/pkg/metadata"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errVerificationFailed = errors.New("manifest verification failed")

func newVerifyCommand(flags *globalFlags) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-hash the output files listed in the run manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := afero.NewOsFs()

			if manifestPath == "" {
				cfg, err := loadConfig(fs, flags)
				if err != nil {
					return err
				}

				manifestPath = cfg.ManifestPath()
			}

			manifest, err := metadata.Load(fs, manifestPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s): %d file(s)\n", manifest.RunID, manifest.GeneratedAt.Format("2006-01-02 15:04:05"), len(manifest.Files))

			problems := manifest.VerifyAll(fs)
			for _, p := range problems {
				fmt.Fprintf(out, "  FAIL %v\n", p)
			}

			if len(problems) > 0 {
				return fmt.Errorf("%w: %d of %d file(s)", errVerificationFailed, len(problems), len(manifest.Files))
			}

			fmt.Fprintln(out, "All files verified")

			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (defaults to the processed directory)")

	return cmd
}
