package swgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorker() *Worker {
	return &Worker{
		CachePrefix: "tech-guide",
		Version:     "vmgestecm-yd5c73",
		OfflinePage: "/offline.html",
		URLs:        []string{"/404.html", "/assets/js/custom.js", "/index.html"},
		GeneratedAt: time.Date(2025, 10, 6, 7, 17, 34, 872_000_000, time.UTC),
	}
}

func TestRenderMatchesGolden(t *testing.T) {
	got, err := sampleWorker().Bytes()
	require.NoError(t, err)

	want, err := os.ReadFile(filepath.Join("testdata", "sw.golden.js"))
	require.NoError(t, err)

	assert.Equal(t, string(want), string(got))
}

func TestRenderStrategy(t *testing.T) {
	got, err := sampleWorker().Bytes()
	require.NoError(t, err)
	script := string(got)

	for _, event := range []string{"install", "activate", "fetch", "sync", "push", "notificationclick"} {
		assert.Contains(t, script, "self.addEventListener('"+event+"'", event)
	}
	assert.Contains(t, script, "cache.addAll(STATIC_CACHE_URLS)")
	assert.Contains(t, script, "if (cacheName !== CACHE_NAME)")
	assert.Contains(t, script, "if (event.request.method !== 'GET')")
	assert.Contains(t, script, "caches.match('/offline.html')")
	assert.False(t, strings.HasSuffix(script, "\n"))
}

func TestRenderConvertsTimeToUTC(t *testing.T) {
	w := sampleWorker()
	w.GeneratedAt = time.Date(2025, 10, 6, 9, 17, 34, 5_000_000, time.FixedZone("CEST", 2*3600))

	got, err := w.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(got), "// Generated on: 2025-10-06T07:17:34.005Z")
}

func TestRenderEmptyAndSpecialURLs(t *testing.T) {
	w := sampleWorker()
	w.URLs = nil
	got, err := w.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(got), "const STATIC_CACHE_URLS = [];")
	assert.Contains(t, string(got), "// Cached files: 0")

	w.URLs = []string{"/a&b/<x>.html", "/café.html"}
	got, err = w.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(got), `"/a&b/<x>.html"`)
	assert.Contains(t, string(got), "\"/café.html\"")
}

func TestRenderRejectsUnsafeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *Worker)
	}{
		{"empty prefix", func(w *Worker) { w.CachePrefix = "" }},
		{"empty version", func(w *Worker) { w.Version = "" }},
		{"quote in prefix", func(w *Worker) { w.CachePrefix = "it's" }},
		{"relative offline page", func(w *Worker) { w.OfflinePage = "offline.html" }},
		{"newline in offline page", func(w *Worker) { w.OfflinePage = "/off\nline.html" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sampleWorker()
			tt.mutate(w)
			_, err := w.Bytes()
			assert.Error(t, err)
		})
	}
}

func TestWriteFileAndInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sw.js")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	w := sampleWorker()
	require.NoError(t, w.WriteFile(path))

	info, err := InspectFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tech-guide-vmgestecm-yd5c73", info.CacheName)
	assert.Equal(t, "vmgestecm-yd5c73", info.Version)
	assert.Equal(t, 3, info.Count)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestInspectRejectsForeignScript(t *testing.T) {
	_, err := Inspect([]byte("self.addEventListener('fetch', () => {});"))
	assert.Error(t, err)
}
