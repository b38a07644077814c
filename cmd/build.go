package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitekit/internal/config"
	siteerrors "github.com/conneroisu/sitekit/internal/errors"
	"github.com/conneroisu/sitekit/internal/logging"
	"github.com/conneroisu/sitekit/internal/services"
	"github.com/conneroisu/sitekit/internal/sitecopy"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Copy PWA support files and generate the service worker",
	Long: `Run after "mkdocs build": copies manifest.json and offline.html from the
docs directory into the site, then generates sw.js with a fresh cache version
and stamps that version into both web app manifests.

Examples:
  sitekit build                          # copy + service worker
  sitekit build --offline-page           # render offline.html when none was copied
  sitekit build --report build.json      # also write a JSON build report`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var (
	buildReport      string
	buildOfflinePage bool
	buildNoCopy      bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildReport, "report", "", "Write a JSON build report to this file")
	buildCmd.Flags().BoolVar(&buildOfflinePage, "offline-page", false, "Render offline.html from docs/offline.md when the site has none")
	buildCmd.Flags().BoolVar(&buildNoCopy, "no-copy", false, "Skip copying support files")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	return build(cmd, cfg, logger, services.BuildOptions{
		Copy:        !buildNoCopy,
		OfflinePage: buildOfflinePage,
		ReportPath:  buildReport,
	})
}

// build runs the build service and prints its outcome.
func build(cmd *cobra.Command, cfg *config.Config, logger logging.Logger, opts services.BuildOptions) error {
	p := newPrinter(cmd)

	if opts.Copy {
		p.line("📁", "Copying files from docs to site...")
	}
	p.line("🔧", "Building service worker...")

	result, err := services.NewBuildService(cfg, logger).Build(commandContext(cmd), opts)
	if err != nil {
		if siteerrors.HasCode(err, siteerrors.ErrCodeSiteNotFound) {
			p.fail("Site directory not found. Run \"mkdocs build\" first.")
		}
		return err
	}

	if result.Copy != nil {
		printCopySummary(p, result.Copy, result.CopyErrors)
	}
	if result.OfflinePageBuilt {
		p.line("📄", "Rendered offline page")
	}

	p.line("📦", "Generated version: %s", result.Version)
	p.line("📁", "Found %d files to cache", result.AssetCount)
	p.success("Service worker generated: %s", result.WorkerPath)
	for _, path := range result.Manifests {
		p.line("📋", "Updated %s with version: %s", path, result.Version)
	}
	if result.ReportPath != "" {
		p.line("📝", "Build report written: %s", result.ReportPath)
	}

	p.line("🎉", "Service worker build complete!")
	p.field("Cache", result.CacheName)
	p.field("Assets", formatBytes(result.TotalBytes))
	p.field("Duration", result.Duration.Round(time.Millisecond))
	return nil
}

func printCopySummary(p *printer, summary *sitecopy.Summary, failures []siteerrors.FileError) {
	for _, r := range summary.Results {
		switch r.Status {
		case sitecopy.StatusCopied:
			p.success("Copied: %s", r.File)
		case sitecopy.StatusUnchanged:
			p.line("📋", "Already in place: %s", r.File)
		case sitecopy.StatusSkipped:
			p.warn("Source file not found: %s", r.Source)
		}
	}
	for _, f := range failures {
		p.fail("Failed to copy %s: %v", f.File, f.Err)
	}
	p.line("📋", "Copied %d files successfully", summary.Copied)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
