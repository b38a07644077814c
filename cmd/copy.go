package cmd

import (
	"github.com/spf13/cobra"

	siteerrors "github.com/conneroisu/sitekit/internal/errors"
	"github.com/conneroisu/sitekit/internal/sitecopy"
)

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy PWA support files from docs into the site",
	Long: `Copy the support files (manifest.json and offline.html by default) from
the docs directory into the built site. Missing source files are reported
and skipped; a file that cannot be copied does not stop the others.`,
	Args: cobra.NoArgs,
	RunE: runCopy,
}

func init() {
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p := newPrinter(cmd)
	p.line("📁", "Copying files from docs to site...")

	copier := sitecopy.New(cfg.Site.DocsDir, cfg.Site.Dir, cfg.Copy.Files, logger)
	summary, err := copier.Copy(commandContext(cmd))
	if err != nil {
		if siteerrors.HasCode(err, siteerrors.ErrCodeSiteNotFound) {
			p.fail("Site directory not found. Run \"mkdocs build\" first.")
		}
		return err
	}

	printCopySummary(p, summary, copier.Errors())
	return nil
}
