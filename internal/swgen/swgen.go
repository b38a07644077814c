// Package swgen renders the browser service worker that precaches a built
// site.
//
// The worker keeps a single cache bucket named after the build version. It
// fills the bucket at install time, deletes every other bucket at activate
// time and answers same-origin GET requests cache-first, falling back to the
// network and, for navigations, to the cached offline page.
package swgen

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/google/renameio/v2"
)

//go:embed templates/sw.js.tmpl
var templateFS embed.FS

var workerTemplate = template.Must(template.ParseFS(templateFS, "templates/sw.js.tmpl"))

// isoMillis matches the format of JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Worker describes one generated service worker.
type Worker struct {
	CachePrefix string
	Version     string
	OfflinePage string
	URLs        []string
	GeneratedAt time.Time
}

// CacheName returns the name of the cache bucket owned by this worker.
func (w *Worker) CacheName() string {
	return w.CachePrefix + "-" + w.Version
}

type templateData struct {
	CacheName   string
	URLsJSON    string
	Version     string
	OfflinePage string
	Count       int
	GeneratedAt string
}

func (w *Worker) validate() error {
	if w.CachePrefix == "" {
		return fmt.Errorf("cache prefix is empty")
	}
	if w.Version == "" {
		return fmt.Errorf("version is empty")
	}
	if !strings.HasPrefix(w.OfflinePage, "/") {
		return fmt.Errorf("offline page must be site-absolute: %q", w.OfflinePage)
	}
	for _, field := range []string{w.CachePrefix, w.Version, w.OfflinePage} {
		if strings.ContainsAny(field, "'\\\n\r") {
			return fmt.Errorf("value cannot be embedded in a JavaScript string: %q", field)
		}
	}
	return nil
}

// Render writes the worker script to out.
func (w *Worker) Render(out io.Writer) error {
	if err := w.validate(); err != nil {
		return err
	}

	urls, err := marshalURLs(w.URLs)
	if err != nil {
		return err
	}

	generatedAt := w.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	var buf bytes.Buffer
	err = workerTemplate.Execute(&buf, templateData{
		CacheName:   w.CacheName(),
		URLsJSON:    urls,
		Version:     w.Version,
		OfflinePage: w.OfflinePage,
		Count:       len(w.URLs),
		GeneratedAt: generatedAt.UTC().Format(isoMillis),
	})
	if err != nil {
		return fmt.Errorf("failed to render service worker: %w", err)
	}

	// The script ends with the trailer comment, no final newline.
	_, err = out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return err
}

// Bytes renders the worker script into memory.
func (w *Worker) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders the worker and atomically replaces path with it.
func (w *Worker) WriteFile(path string) error {
	content, err := w.Bytes()
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, content, 0644, renameio.WithTempDir(filepath.Dir(path)))
}

// marshalURLs encodes the URL list like JSON.stringify(urls, null, 2).
func marshalURLs(urls []string) (string, error) {
	if urls == nil {
		urls = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(urls); err != nil {
		return "", fmt.Errorf("failed to encode cache URLs: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

var (
	cacheNamePattern = regexp.MustCompile(`(?m)^const CACHE_NAME = '([^']*)';`)
	versionPattern   = regexp.MustCompile(`(?m)^// Service Worker version: (\S+)`)
	countPattern     = regexp.MustCompile(`(?m)^// Cached files: (\d+)`)
)

// Info is what can be read back from a generated worker.
type Info struct {
	CacheName string
	Version   string
	Count     int
}

// Inspect extracts the cache name, version and file count from a worker
// script produced by Render.
func Inspect(script []byte) (*Info, error) {
	info := &Info{}
	if m := cacheNamePattern.FindSubmatch(script); m != nil {
		info.CacheName = string(m[1])
	}
	if m := versionPattern.FindSubmatch(script); m != nil {
		info.Version = string(m[1])
	}
	if m := countPattern.FindSubmatch(script); m != nil {
		info.Count, _ = strconv.Atoi(string(m[1]))
	}
	if info.CacheName == "" || info.Version == "" {
		return nil, fmt.Errorf("not a generated service worker")
	}
	return info, nil
}

// InspectFile reads a worker from disk and inspects it.
func InspectFile(path string) (*Info, error) {
	script, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Inspect(script)
}
