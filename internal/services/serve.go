package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/conneroisu/sitekit/internal/assets"
	"github.com/conneroisu/sitekit/internal/config"
	siteerrors "github.com/conneroisu/sitekit/internal/errors"
	"github.com/conneroisu/sitekit/internal/logging"
	"github.com/conneroisu/sitekit/internal/server"
	"github.com/conneroisu/sitekit/internal/watcher"
)

// WatchService regenerates the service worker whenever the built site
// changes.
type WatchService struct {
	config *config.Config
	logger logging.Logger
	build  *BuildService
	errors *siteerrors.ErrorHandler
}

// NewWatchService creates a new watch service
func NewWatchService(cfg *config.Config, logger logging.Logger, build *BuildService) *WatchService {
	if logger == nil {
		logger = logging.Discard()
	}
	if build == nil {
		build = NewBuildService(cfg, logger)
	}
	logger = logger.WithComponent("watch")
	return &WatchService{
		config: cfg,
		logger: logger,
		build:  build,
		errors: siteerrors.NewErrorHandler(logger),
	}
}

// Watch blocks until ctx is cancelled. onBuild, when not nil, is called
// after every successful regeneration. A failed regeneration is logged and
// watching continues.
func (s *WatchService) Watch(ctx context.Context, onBuild func(*BuildResult)) error {
	cfg := s.config

	// Watch events carry absolute paths.
	root, err := filepath.Abs(cfg.Site.Dir)
	if err != nil {
		return fmt.Errorf("invalid site directory: %w", err)
	}

	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce, s.logger, cfg.ServiceWorker.SkipDirs...)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Stop()

	// Regeneration writes these itself.
	fw.AddFilter(watcher.ExcludeFileFilter(cfg.WorkerPath(), filepath.Join(cfg.Site.Dir, config.DefaultManifest)))
	fw.AddFilter(watcher.NoTempFilter)
	fw.AddFilter(assets.NewCollector(root, collectorOptions(cfg)).IsCacheable)

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		s.logger.Info(ctx, "Site changed, regenerating service worker", "changes", len(events))
		result, err := s.build.Build(ctx, BuildOptions{})
		if err != nil {
			s.errors.Handle(ctx, err)
			return nil
		}
		if onBuild != nil {
			onBuild(result)
		}
		return nil
	})

	if err := fw.AddRecursive(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Site.Dir, err)
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	s.logger.Info(ctx, "Watching site for changes",
		"site", root,
		"directories", len(fw.WatchList()),
		"debounce", cfg.Watch.Debounce.String(),
	)
	<-ctx.Done()
	return nil
}

// ServeService runs the preview server, optionally with live reload.
type ServeService struct {
	config *config.Config
	logger logging.Logger
	build  *BuildService
}

// NewServeService creates a new serve service
func NewServeService(cfg *config.Config, logger logging.Logger) *ServeService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ServeService{config: cfg, logger: logger, build: NewBuildService(cfg, logger)}
}

// ServeOptions contains options for the serve process
type ServeOptions struct {
	// Watch regenerates the worker on change and reloads open pages.
	Watch bool
	// Build generates the worker once before serving.
	Build bool
}

// Serve blocks until ctx is cancelled.
func (s *ServeService) Serve(ctx context.Context, opts ServeOptions) error {
	if opts.Build {
		if _, err := s.build.Build(ctx, BuildOptions{}); err != nil {
			return err
		}
	}

	srv := server.New(s.config, s.logger, server.Options{LiveReload: opts.Watch})

	if opts.Watch {
		watch := NewWatchService(s.config, s.logger, s.build)
		go func() {
			err := watch.Watch(ctx, func(result *BuildResult) {
				srv.NotifyReload(result.Version)
			})
			if err != nil {
				s.logger.Error(ctx, err, "Watcher stopped")
			}
		}()
	}

	return srv.Start(ctx)
}
