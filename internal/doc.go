// Package internal contains the core implementation packages for sitekit.
//
// These packages are unavailable to external modules. The cmd package wires
// them into the sitekit CLI.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - config: layered configuration, mkdocs.yml discovery and validation
//   - errors: typed SiteError values and the per-file ErrorCollector
//   - logging: structured slog logger and performance timing
//   - version: binary build info and per-build cache versions
//   - assets: walks the built site and lists cacheable URLs
//   - swgen: renders the service worker from its embedded template
//   - webmanifest: stamps version_name into web app manifests
//   - sitecopy: copies root files from the docs tree into the site
//   - offline: renders the offline fallback page
//   - audit: reports pages referencing uncached local assets
//   - watcher: debounced recursive file system monitoring
//   - server: local preview server with live reload over WebSocket
//   - services: build, audit, watch and serve orchestration
//
// # Build Flow
//
// A build runs in a fixed order. The copy step places docs root files into
// the site, assets are collected, a fresh cache version is generated, the
// worker is written and every manifest is stamped with the same version.
// Steps are not transactional. A failure stops the build at that step, so
// an invalid docs manifest is reported after sw.js and the site manifest
// already carry the new version. Each file write is atomic on its own.
//
// # Testing Strategy
//
// Tests use testify and work on temporary site trees. Property tests built
// with gopter sit behind the property build tag:
//
//	go test -tags property ./...
package internal
