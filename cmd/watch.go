package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitekit/internal/services"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the service worker when the site changes",
	Long: `Watch the built site and regenerate sw.js after each burst of changes,
for example while "mkdocs build" runs in a loop or from an editor hook.

Changes to sw.js and site/manifest.json themselves are ignored.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchSkipInitial bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchSkipInitial, "no-initial", false, "Do not generate the worker before watching")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buildService := services.NewBuildService(cfg, logger)
	p := newPrinter(cmd)

	if !watchSkipInitial {
		result, err := buildService.Build(ctx, services.BuildOptions{})
		if err != nil {
			return err
		}
		p.success("Service worker generated: %s (%s)", result.WorkerPath, result.Version)
	}

	p.line("👀", "Watching %s for changes (Ctrl+C to stop)", cfg.Site.Dir)

	return services.NewWatchService(cfg, logger, buildService).Watch(ctx, func(result *services.BuildResult) {
		p.line("🔄", "Regenerated %s: %s, %d files", result.WorkerPath, result.Version, result.AssetCount)
	})
}
