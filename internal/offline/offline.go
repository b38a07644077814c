// Package offline renders the fallback page served by the service worker
// when a navigation fails without network access.
package offline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/a-h/templ"
	"github.com/google/renameio/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	siteerrors "github.com/conneroisu/sitekit/internal/errors"
)

// DefaultMessage is rendered when the docs directory has no offline.md.
const DefaultMessage = `# You're offline

This page isn't available without a network connection.
Pages you have already visited are still available from the cache.

[Back to the home page](/)
`

const (
	SourceFile = "offline.md"
	OutputFile = "offline.html"
)

var (
	markdown     goldmark.Markdown
	markdownOnce sync.Once
)

func markdownRenderer() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

// Page is an offline page ready to render.
type Page struct {
	SiteName string
	Markdown []byte
}

// Component returns the page as a templ component.
func (p Page) Component() templ.Component {
	return Layout(p.SiteName, Body(p.Markdown))
}

// Body converts markdown into an HTML fragment.
func Body(source []byte) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return markdownRenderer().Convert(source, w)
	})
}

// Layout wraps content in a standalone HTML document. The page must work
// with nothing else cached, so styles are inlined.
func Layout(siteName string, content templ.Component) templ.Component {
	return templ.Join(
		templ.Raw(documentStart),
		Head("Offline - "+siteName),
		templ.Raw(bodyStart),
		content,
		templ.Raw(documentEnd),
	)
}

// Head renders the document head with an escaped title.
func Head(title string) templ.Component {
	return templ.Join(
		templ.Raw(headStart),
		templ.Raw("<title>"+templ.EscapeString(title)+"</title>\n"),
		templ.Raw(headEnd),
	)
}

const documentStart = `<!DOCTYPE html>
<html lang="en">
`

const headStart = `<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
`

const headEnd = `<link rel="manifest" href="/manifest.json">
<style>
body{font-family:system-ui,-apple-system,"Segoe UI",Roboto,sans-serif;margin:0;padding:2rem;color:#222;background:#fafafa}
main{max-width:40rem;margin:10vh auto;line-height:1.6}
a{color:#3f51b5}
</style>
</head>
`

const bodyStart = `<body>
<main>
`

const documentEnd = `</main>
</body>
</html>
`

// Options locate the offline page source and output.
type Options struct {
	DocsDir  string
	SiteDir  string
	SiteName string
}

// Generate writes <site>/offline.html unless it already exists. It reports
// whether a page was written. The page content comes from
// <docs>/offline.md when present, DefaultMessage otherwise.
func Generate(ctx context.Context, opts Options) (bool, error) {
	dest := filepath.Join(opts.SiteDir, OutputFile)
	if _, err := os.Stat(dest); err == nil {
		return false, nil
	}

	source, err := os.ReadFile(filepath.Join(opts.DocsDir, SourceFile))
	if errors.Is(err, fs.ErrNotExist) {
		source = []byte(DefaultMessage)
	} else if err != nil {
		return false, siteerrors.NewIOError(siteerrors.ErrCodeRenderFailed, "failed to read offline page source", err).
			WithPath(filepath.Join(opts.DocsDir, SourceFile))
	}

	var buf bytes.Buffer
	page := Page{SiteName: opts.SiteName, Markdown: source}
	if err := page.Component().Render(ctx, &buf); err != nil {
		return false, siteerrors.NewBuildError(siteerrors.ErrCodeRenderFailed, "failed to render offline page", err)
	}

	if err := renameio.WriteFile(dest, buf.Bytes(), 0644, renameio.WithTempDir(opts.SiteDir)); err != nil {
		return false, siteerrors.NewIOError(siteerrors.ErrCodeWriteFailed, "failed to write offline page", err).WithPath(dest)
	}
	return true, nil
}
