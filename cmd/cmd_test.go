package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	siteerrors "github.com/conneroisu/sitekit/internal/errors"
	"github.com/conneroisu/sitekit/internal/swgen"
	"github.com/conneroisu/sitekit/internal/webmanifest"
)

type project struct {
	root string
	site string
	docs string
}

func newProject(t *testing.T) project {
	t.Helper()
	root := t.TempDir()
	p := project{root: root, site: filepath.Join(root, "site"), docs: filepath.Join(root, "docs")}

	files := map[string]string{
		"site/index.html":          `<html><body><a href="guide/">Guide</a><img src="img/chart.jpg"></body></html>`,
		"site/guide/index.html":    "<h1>Guide</h1>",
		"site/assets/js/custom.js": "",
		"docs/manifest.json":       `{"name":"Guide","version":"1.0.0"}`,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return p
}

// execute runs the root command with project directories and returns its
// stdout.
func execute(t *testing.T, p project, args ...string) (string, error) {
	t.Helper()

	buildReport, buildOfflinePage, buildNoCopy = "", false, false
	swReport = ""
	auditStrict, auditFormat = false, "text"
	versionFormat, versionShort, versionDetailed = "text", false, false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args,
		"--site-dir", p.site,
		"--docs-dir", p.docs,
		"--mkdocs-file", filepath.Join(p.root, "mkdocs.yml"),
	))

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSWCommand(t *testing.T) {
	p := newProject(t)

	out, err := execute(t, p, "sw")
	require.NoError(t, err)

	assert.Contains(t, out, "Found 3 files to cache")
	assert.Contains(t, out, "Service worker build complete!")

	info, err := swgen.InspectFile(filepath.Join(p.site, "sw.js"))
	require.NoError(t, err)
	assert.Equal(t, 3, info.Count)

	v, err := webmanifest.ReadVersion(filepath.Join(p.docs, "manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, info.Version, v)
}

func TestSWCommandMissingSite(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.RemoveAll(p.site))

	out, err := execute(t, p, "sw")
	require.Error(t, err)
	assert.True(t, siteerrors.HasCode(err, siteerrors.ErrCodeSiteNotFound))
	assert.Contains(t, out, "Site directory not found")
}

func TestSWCommandRejectsArguments(t *testing.T) {
	p := newProject(t)

	_, err := execute(t, p, "sw", "site")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(p.site, "sw.js"))
}

func TestBuildCommand(t *testing.T) {
	p := newProject(t)
	report := filepath.Join(p.root, "report.json")

	out, err := execute(t, p, "build", "--offline-page", "--report", report)
	require.NoError(t, err)

	assert.Contains(t, out, "Copied: manifest.json")
	assert.Contains(t, out, "Source file not found")
	assert.Contains(t, out, "Rendered offline page")
	assert.Contains(t, out, "Build report written")
	assert.FileExists(t, filepath.Join(p.site, "offline.html"))

	info, err := swgen.InspectFile(filepath.Join(p.site, "sw.js"))
	require.NoError(t, err)
	for _, manifest := range []string{filepath.Join(p.site, "manifest.json"), filepath.Join(p.docs, "manifest.json")} {
		v, err := webmanifest.ReadVersion(manifest)
		require.NoError(t, err)
		assert.Equal(t, info.Version, v, manifest)
	}

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, info.Version, body["version"])
}

func TestCopyCommand(t *testing.T) {
	p := newProject(t)

	out, err := execute(t, p, "copy")
	require.NoError(t, err)
	assert.Contains(t, out, "Copied 1 files successfully")
	assert.FileExists(t, filepath.Join(p.site, "manifest.json"))
	assert.NoFileExists(t, filepath.Join(p.site, "sw.js"))
}

func TestCopyCommandReportsFailure(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.Mkdir(filepath.Join(p.docs, "offline.html"), 0755))

	out, err := execute(t, p, "copy")
	require.NoError(t, err)
	assert.Contains(t, out, "Failed to copy "+filepath.Join(p.docs, "offline.html"))
	assert.Contains(t, out, string(siteerrors.ErrCodeCopyFailed))
	assert.Contains(t, out, "Copied 1 files successfully")
}

func TestCopyCommandMissingSite(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.RemoveAll(p.site))

	_, err := execute(t, p, "copy")
	assert.True(t, siteerrors.HasCode(err, siteerrors.ErrCodeSiteNotFound))
}

func TestAuditCommand(t *testing.T) {
	p := newProject(t)

	out, err := execute(t, p, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "Audited 2 pages")
	assert.Contains(t, out, "/index.html: /img/chart.jpg is not precached")

	_, err = execute(t, p, "audit", "--strict")
	require.Error(t, err)
	assert.True(t, siteerrors.HasCode(err, siteerrors.ErrCodeAuditFindings))
}

func TestAuditCommandJSON(t *testing.T) {
	p := newProject(t)

	out, err := execute(t, p, "audit", "--format", "json")
	require.NoError(t, err)

	var report struct {
		Pages    int `json:"pages"`
		Findings []struct {
			Kind string `json:"kind"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Pages)
	assert.Len(t, report.Findings, 2)
}

func TestAuditCommandRejectsUnknownFormat(t *testing.T) {
	p := newProject(t)

	_, err := execute(t, p, "audit", "--format", "yaml")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	p := newProject(t)

	out, err := execute(t, p, "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestVersionCommandDetailed(t *testing.T) {
	p := newProject(t)

	out, err := execute(t, p, "version", "--detailed")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: ")
	assert.Contains(t, out, "Platform: ")

	out, err = execute(t, p, "version")
	require.NoError(t, err)
	assert.NotContains(t, out, "Platform: ", "flag state resets between runs")
}

func TestEnumValue(t *testing.T) {
	var target string
	v := newEnumValue(&target, "text", "text", "json")

	assert.Equal(t, "text", v.String())
	require.NoError(t, v.Set("json"))
	assert.Equal(t, "json", target)
	assert.Error(t, v.Set("xml"))
	assert.Equal(t, "json", target)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 MiB", formatBytes(2*1024*1024))
}
