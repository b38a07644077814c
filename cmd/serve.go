package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitekit/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Preview the built site locally",
	Long: `Serve the built site with the headers a service worker needs, gzip
compression and the site's own 404 page.

With --watch the worker is regenerated whenever the site changes and open
pages reload themselves.

Examples:
  sitekit serve                  # serve on localhost:8000
  sitekit serve --watch -p 3000  # live reload on port 3000`,
	Aliases: []string{"s"},
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

var (
	serveWatch bool
	serveBuild bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	addServerFlags(serveCmd)
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Regenerate the worker on change and reload open pages")
	serveCmd.Flags().BoolVar(&serveBuild, "build", false, "Generate the worker before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPrinter(cmd)
	p.line("🌐", "Serving %s at %s", cfg.Site.Dir, fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port))
	if serveWatch {
		p.line("👀", "Live reload enabled")
	}

	return services.NewServeService(cfg, logger).Serve(ctx, services.ServeOptions{
		Watch: serveWatch,
		Build: serveBuild,
	})
}
