package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/conneroisu/sitekit/internal/audit"
	"github.com/conneroisu/sitekit/internal/config"
	"github.com/conneroisu/sitekit/internal/logging"
	"github.com/conneroisu/sitekit/internal/sitecopy"
	"github.com/conneroisu/sitekit/internal/swgen"
	"github.com/conneroisu/sitekit/internal/version"
	"github.com/conneroisu/sitekit/internal/webmanifest"
)

// AuditService checks the offline coverage of a built site.
type AuditService struct {
	config *config.Config
	logger logging.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(cfg *config.Config, logger logging.Logger) *AuditService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AuditService{config: cfg, logger: logger.WithComponent("audit")}
}

// Audit collects the site exactly like a build would and audits every page
// against that list. When the site has a generated worker, every manifest
// must carry its version.
func (s *AuditService) Audit(ctx context.Context) (*audit.Report, error) {
	if err := sitecopy.CheckSiteDir(s.config.Site.Dir); err != nil {
		return nil, err
	}

	perf := logging.StartOperation(s.logger, "audit")

	list, err := NewCollector(s.config).Collect(ctx)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	report, err := audit.New(s.config.ServiceWorker.OfflinePage).Run(ctx, list)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	report.Findings = append(report.Findings, s.versionFindings(ctx)...)

	perf.End(ctx, "pages", report.Pages, "findings", len(report.Findings))
	return report, nil
}

func (s *AuditService) versionFindings(ctx context.Context) []audit.Finding {
	workerPath := s.config.WorkerPath()
	info, err := swgen.InspectFile(workerPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.logger.Warn(ctx, err, "Skipping manifest version check", "worker", workerPath)
		return nil
	}
	if generated, _, err := version.ParseCacheVersion(info.Version); err == nil {
		s.logger.Debug(ctx, "Found generated worker", "version", info.Version, "generated", generated.UTC())
	}

	var findings []audit.Finding
	for _, path := range s.config.ManifestPaths() {
		v, err := webmanifest.ReadVersion(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			findings = append(findings, audit.Finding{
				Kind:      audit.KindStaleManifest,
				Reference: path,
				Message:   fmt.Sprintf("cannot read version of %s: %v", path, err),
			})
		case v != info.Version:
			findings = append(findings, audit.Finding{
				Kind:      audit.KindStaleManifest,
				Reference: path,
				Message:   fmt.Sprintf("%s has version %q but the worker has %q", path, v, info.Version),
			})
		}
	}
	return findings
}
