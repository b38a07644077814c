package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/sitekit/internal/services"
)

var swCmd = &cobra.Command{
	Use:   "sw",
	Short: "Generate the service worker",
	Long: `Generate sw.js for the built site and stamp its cache version into
site/manifest.json and docs/manifest.json.

The command fails when the site directory does not exist. Run "mkdocs build"
first, or use "sitekit build" to copy support files as well.`,
	Args: cobra.NoArgs,
	RunE: runSW,
}

var swReport string

func init() {
	rootCmd.AddCommand(swCmd)

	swCmd.Flags().StringVar(&swReport, "report", "", "Write a JSON build report to this file")
}

func runSW(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return build(cmd, cfg, logger, services.BuildOptions{ReportPath: swReport})
}
