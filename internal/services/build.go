package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/conneroisu/sitekit/internal/assets"
	"github.com/conneroisu/sitekit/internal/config"
	siteerrors "github.com/conneroisu/sitekit/internal/errors"
	"github.com/conneroisu/sitekit/internal/logging"
	"github.com/conneroisu/sitekit/internal/offline"
	"github.com/conneroisu/sitekit/internal/sitecopy"
	"github.com/conneroisu/sitekit/internal/swgen"
	"github.com/conneroisu/sitekit/internal/version"
	"github.com/conneroisu/sitekit/internal/webmanifest"
)

// BuildService turns a built site into an offline-capable one.
type BuildService struct {
	config   *config.Config
	logger   logging.Logger
	versions *version.Generator
	now      func() time.Time
}

// BuildServiceOption configures a BuildService.
type BuildServiceOption func(*BuildService)

// WithVersionGenerator replaces the cache version generator.
func WithVersionGenerator(g *version.Generator) BuildServiceOption {
	return func(s *BuildService) { s.versions = g }
}

// WithClock replaces the clock used for generation timestamps.
func WithClock(now func() time.Time) BuildServiceOption {
	return func(s *BuildService) { s.now = now }
}

// NewBuildService creates a new build service
func NewBuildService(cfg *config.Config, logger logging.Logger, opts ...BuildServiceOption) *BuildService {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &BuildService{
		config:   cfg,
		logger:   logger.WithComponent("build"),
		versions: version.NewGenerator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildOptions contains options for the build process
type BuildOptions struct {
	// Copy runs the support-file copy before generating the worker.
	Copy bool
	// OfflinePage renders an offline page when the site has none.
	OfflinePage bool
	// ReportPath, when set, receives a JSON build report.
	ReportPath string
}

// BuildResult contains the result of a build operation
type BuildResult struct {
	Version          string
	CacheName        string
	WorkerPath       string
	AssetCount       int
	TotalBytes       int64
	Manifests        []string
	Copy             *sitecopy.Summary
	CopyErrors       []siteerrors.FileError
	OfflinePageBuilt bool
	ReportPath       string
	Duration         time.Duration
}

// BuildReport is the JSON document written by --report.
type BuildReport struct {
	BuildID     string            `json:"build_id"`
	Version     string            `json:"version"`
	CacheName   string            `json:"cache_name"`
	GeneratedAt time.Time         `json:"generated_at"`
	AssetCount  int               `json:"asset_count"`
	TotalBytes  int64             `json:"total_bytes"`
	Assets      []assets.Asset    `json:"assets"`
	Manifests   []string          `json:"manifests"`
	Copy        *sitecopy.Summary `json:"copy,omitempty"`
}

// Build runs copy, offline page, collection, worker generation, manifest
// stamping and reporting in that order. The worker and every stamped
// manifest carry the same version.
func (s *BuildService) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	startTime := time.Now()
	perf := logging.StartOperation(s.logger, "build")

	result, err := s.build(ctx, opts)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	result.Duration = time.Since(startTime)
	perf.End(ctx, "version", result.Version, "assets", result.AssetCount)
	return result, nil
}

func (s *BuildService) build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	cfg := s.config
	result := &BuildResult{WorkerPath: cfg.WorkerPath()}

	if err := sitecopy.CheckSiteDir(cfg.Site.Dir); err != nil {
		return nil, err
	}

	if opts.Copy {
		copier := sitecopy.New(cfg.Site.DocsDir, cfg.Site.Dir, cfg.Copy.Files, s.logger)
		summary, err := copier.Copy(ctx)
		if err != nil {
			return nil, err
		}
		result.Copy = summary
		result.CopyErrors = copier.Errors()
	}

	if opts.OfflinePage {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		built, err := offline.Generate(ctx, offline.Options{
			DocsDir:  cfg.Site.DocsDir,
			SiteDir:  cfg.Site.Dir,
			SiteName: cfg.SiteName(),
		})
		if err != nil {
			return nil, err
		}
		result.OfflinePageBuilt = built
		if built {
			s.logger.Info(ctx, "Rendered offline page", "site", cfg.Site.Dir)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}
	result.AssetCount = len(list)
	result.TotalBytes = assets.TotalSize(list)

	v, err := s.versions.Next()
	if err != nil {
		return nil, siteerrors.NewInternalError(siteerrors.ErrCodeInternalError, "failed to generate cache version", err)
	}
	result.Version = v

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	generatedAt := s.now()
	worker := &swgen.Worker{
		CachePrefix: cfg.ServiceWorker.CachePrefix,
		Version:     v,
		OfflinePage: cfg.ServiceWorker.OfflinePage,
		URLs:        assets.URLs(list),
		GeneratedAt: generatedAt,
	}
	if err := worker.WriteFile(result.WorkerPath); err != nil {
		return nil, siteerrors.NewBuildError(siteerrors.ErrCodeWriteFailed, "failed to write service worker", err).WithPath(result.WorkerPath)
	}
	result.CacheName = worker.CacheName()
	s.logger.Info(ctx, "Generated service worker",
		"path", result.WorkerPath,
		"version", v,
		"assets", len(list),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, path := range cfg.ManifestPaths() {
		stamped, err := webmanifest.Stamp(path, v)
		if err != nil {
			return nil, err
		}
		if stamped {
			result.Manifests = append(result.Manifests, path)
			s.logger.Info(ctx, "Updated manifest version", "path", path, "version", v)
		}
	}

	if opts.ReportPath != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := assets.ComputeDigests(ctx, list); err != nil {
			return nil, siteerrors.NewBuildError(siteerrors.ErrCodeWriteFailed, "failed to hash assets", err)
		}
		report := &BuildReport{
			BuildID:     uuid.NewString(),
			Version:     v,
			CacheName:   result.CacheName,
			GeneratedAt: generatedAt.UTC(),
			AssetCount:  len(list),
			TotalBytes:  result.TotalBytes,
			Assets:      list,
			Manifests:   nonNil(result.Manifests),
			Copy:        result.Copy,
		}
		if err := writeReport(opts.ReportPath, report); err != nil {
			return nil, err
		}
		result.ReportPath = opts.ReportPath
	}

	return result, nil
}

// collect returns the cacheable assets of the site, without the worker.
func (s *BuildService) collect(ctx context.Context) ([]assets.Asset, error) {
	list, err := NewCollector(s.config).Collect(ctx)
	if err != nil {
		return nil, siteerrors.NewIOError(siteerrors.ErrCodeInternalError, "failed to collect assets", err).WithPath(s.config.Site.Dir)
	}
	if len(list) == 0 {
		return nil, siteerrors.ErrEmptyManifest(s.config.Site.Dir).
			WithContext("extensions", strings.Join(s.config.ServiceWorker.Extensions, " "))
	}
	return list, nil
}

// NewCollector returns the asset collector configured for cfg.
func NewCollector(cfg *config.Config) *assets.Collector {
	return assets.NewCollector(cfg.Site.Dir, collectorOptions(cfg))
}

func collectorOptions(cfg *config.Config) assets.Options {
	return assets.Options{
		Extensions: cfg.ServiceWorker.Extensions,
		SkipDirs:   cfg.ServiceWorker.SkipDirs,
		Exclude:    []string{cfg.WorkerURL()},
	}
}

func writeReport(path string, report *BuildReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode build report: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0644, renameio.WithTempDir(filepath.Dir(path))); err != nil {
		return siteerrors.NewIOError(siteerrors.ErrCodeWriteFailed, "failed to write build report", err).WithPath(path)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
