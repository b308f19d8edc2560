package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/lonewatch/internal/adapters/render/status"
	"github.com/bnema/lonewatch/internal/application"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the sessions and supervisors in a saved state file",
		Long:  "status reads the state file written by serve and prints each session with its silence, missed count and next escalation step. It does not talk to the running bot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, map[string]string{"file": keySaveFilename})
			if err != nil {
				return err
			}

			app, err := wireApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			snapshot, err := app.repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load %s: %w", cfg.SaveFilename, err)
			}

			report := application.BuildStatusReport(snapshot, cfg.settings(), app.now())
			return writeStatusOutput(cmd, app, report, asJSON)
		},
	}

	cmd.Flags().String("file", "", "state file to read (defaults to save_filename)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	return cmd
}

func writeStatusOutput(cmd *cobra.Command, app *app, report application.StatusReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	rendered, err := app.statusRenderer(report, statusadapter.RenderOptions{
		Now:            report.GeneratedAt,
		AlertThreshold: app.config.settings().AlertThreshold,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
