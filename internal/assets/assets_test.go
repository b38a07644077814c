package assets

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

var defaultOptions = Options{
	Extensions: []string{".html", ".css", ".js", ".json", ".png", ".ico", ".svg", ".woff", ".woff2"},
	SkipDirs:   []string{"node_modules", ".git", ".cache"},
	Exclude:    []string{"/sw.js"},
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.html":                           "<html></html>",
		"404.html":                             "not found",
		"sw.js":                                "old worker",
		"manifest.json":                        "{}",
		"offline.html":                         "offline",
		"assets/css/custom.css":                "body{}",
		"assets/images/favicon.ico":            "ico",
		"assets/images/Logo.PNG":               "png",
		"assets/javascripts/lunr/tinyseg.js":   "js",
		"assets/fonts/inter.woff2":             "font",
		"graph-modeling/dfs-bfs/index.html":    "page",
		"graph-modeling/index.html":            "section",
		"search/search_index.json":             "{}",
		"sitemap.xml":                          "<urlset/>",
		"sitemap.xml.gz":                       "gz",
		"README.md":                            "# readme",
		"node_modules/pkg/index.js":            "skip",
		".git/config.json":                     "skip",
		"assets/.cache/plugin/social.png":      "skip",
		"assets/javascripts/bundle.min.js.map": "map",
	})

	collector := NewCollector(root, defaultOptions)
	got, err := collector.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/404.html",
		"/assets/css/custom.css",
		"/assets/fonts/inter.woff2",
		"/assets/images/Logo.PNG",
		"/assets/images/favicon.ico",
		"/assets/javascripts/lunr/tinyseg.js",
		"/graph-modeling/dfs-bfs/index.html",
		"/graph-modeling/index.html",
		"/index.html",
		"/manifest.json",
		"/offline.html",
		"/search/search_index.json",
	}, URLs(got))

	for _, a := range got {
		assert.FileExists(t, a.Path)
	}
	assert.Equal(t, int64(len("<html></html>")), got[8].Size)
}

func TestCollectEmptySite(t *testing.T) {
	got, err := NewCollector(t.TempDir(), defaultOptions).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCollectMissingRoot(t *testing.T) {
	_, err := NewCollector(filepath.Join(t.TempDir(), "missing"), defaultOptions).Collect(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollectCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"index.html": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector(root, defaultOptions).Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectNormalizesUnicode(t *testing.T) {
	root := t.TempDir()
	// "café" spelled with a combining acute accent (NFD).
	writeFiles(t, root, map[string]string{"cafe\u0301/index.html": "x"})

	got, err := NewCollector(root, defaultOptions).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/caf\u00e9/index.html"}, URLs(got))
}

func TestIsCacheable(t *testing.T) {
	root := t.TempDir()
	c := NewCollector(root, defaultOptions)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "index.html"), true},
		{filepath.Join(root, "assets", "x.CSS"), true},
		{filepath.Join(root, "sw.js"), false},
		{filepath.Join(root, "notes.md"), false},
		{filepath.Join(root, "node_modules", "a.js"), false},
		{filepath.Join(root, "a", ".git", "b.json"), false},
		{filepath.Join(filepath.Dir(root), "outside.html"), false},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsCacheable(tt.path))
		})
	}
}

func TestComputeDigests(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.html":   "<h1>Guide</h1>",
		"a/style.css":  "body{margin:0}",
		"b/script.js":  "console.log(1)",
		"c/empty.json": "",
	})

	c := NewCollector(root, defaultOptions)
	got, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.NoError(t, ComputeDigests(context.Background(), got))

	for _, a := range got {
		content, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		sum := blake3.Sum256(content)
		assert.Equal(t, hex.EncodeToString(sum[:]), a.Digest, a.URL)
	}
	assert.Equal(t, int64(len("<h1>Guide</h1>")+len("body{margin:0}")+len("console.log(1)")), TotalSize(got))
}

func TestComputeDigestsMissingFile(t *testing.T) {
	assets := []Asset{{URL: "/gone.html", Path: filepath.Join(t.TempDir(), "gone.html")}}
	err := ComputeDigests(context.Background(), assets)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestComputeDigestsCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"index.html": "<h1>Guide</h1>"})
	assets := []Asset{{URL: "/index.html", Path: filepath.Join(root, "index.html")}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ComputeDigests(ctx, assets)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, assets[0].Digest)
}
