package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRegeneratesOnChange(t *testing.T) {
	cfg := newProject(t)
	cfg.Watch.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := make(chan *BuildResult, 10)
	done := make(chan error, 1)
	go func() {
		done <- NewWatchService(cfg, nil, nil).Watch(ctx, func(r *BuildResult) { builds <- r })
	}()

	// Writes keep arriving until the watcher is up.
	page := filepath.Join(cfg.Site.Dir, "guide", "new.html")
	var result *BuildResult
	deadline := time.After(10 * time.Second)
	for result == nil {
		require.NoError(t, os.WriteFile(page, []byte("<h1>New</h1>"), 0644))
		select {
		case result = <-builds:
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("worker was not regenerated")
		}
	}

	script, err := os.ReadFile(cfg.WorkerPath())
	require.NoError(t, err)
	assert.Contains(t, string(script), `"/guide/new.html"`)
	assert.Contains(t, string(script), result.Version)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchMissingSite(t *testing.T) {
	cfg := newProject(t)
	cfg.Site.Dir = filepath.Join(t.TempDir(), "missing")

	err := NewWatchService(cfg, nil, nil).Watch(context.Background(), nil)
	assert.Error(t, err)
}

func TestWatchContinuesAfterFailedBuild(t *testing.T) {
	cfg := newProject(t)
	cfg.Watch.Debounce = 50 * time.Millisecond
	manifest := filepath.Join(cfg.Site.DocsDir, "manifest.json")
	require.NoError(t, os.WriteFile(manifest, []byte("{broken"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := make(chan *BuildResult, 10)
	done := make(chan error, 1)
	go func() {
		done <- NewWatchService(cfg, nil, nil).Watch(ctx, func(r *BuildResult) { builds <- r })
	}()

	page := filepath.Join(cfg.Site.Dir, "guide", "new.html")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(page, []byte("<h1>New</h1>"), 0644))
		select {
		case <-builds:
			t.Fatal("build succeeded with a broken manifest")
		case <-time.After(200 * time.Millisecond):
		}
	}

	require.NoError(t, os.WriteFile(manifest, []byte(docsManifest), 0644))

	var result *BuildResult
	deadline := time.After(10 * time.Second)
	for result == nil {
		require.NoError(t, os.WriteFile(page, []byte("<h1>Newer</h1>"), 0644))
		select {
		case result = <-builds:
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("watcher stopped after a failed build")
		}
	}
	assert.Contains(t, result.Manifests, manifest)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchIgnoresUncacheableFiles(t *testing.T) {
	cfg := newProject(t)
	cfg.Watch.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := make(chan *BuildResult, 100)
	go func() {
		_ = NewWatchService(cfg, nil, nil).Watch(ctx, func(r *BuildResult) { builds <- r })
	}()

	page := filepath.Join(cfg.Site.Dir, "index.html")
	deadline := time.After(10 * time.Second)
	for started := false; !started; {
		require.NoError(t, os.WriteFile(page, []byte("<h1>Home</h1>"), 0644))
		select {
		case <-builds:
			started = true
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("watcher did not start")
		}
	}
	for quiet := false; !quiet; {
		select {
		case <-builds:
		case <-time.After(300 * time.Millisecond):
			quiet = true
		}
	}

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Site.Dir, "sitemap.xml.gz"), []byte("zz"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Site.Dir, "notes.txt"), []byte("notes"), 0644))

	select {
	case <-builds:
		t.Fatal("non-cacheable change triggered a build")
	case <-time.After(500 * time.Millisecond):
	}
}
