// Package audit checks that every local resource referenced by the built
// pages is part of the service worker's precache list.
package audit

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"github.com/conneroisu/sitekit/internal/assets"
)

// Kind classifies a finding.
type Kind string

const (
	KindUncached       Kind = "uncached"
	KindMissingOffline Kind = "missing_offline_page"
	KindParseError     Kind = "parse_error"
	KindStaleManifest  Kind = "stale_manifest"
)

// Finding is one offline coverage problem.
type Finding struct {
	Kind      Kind   `json:"kind"`
	Page      string `json:"page,omitempty"`
	Reference string `json:"reference,omitempty"`
	Message   string `json:"message"`
}

func (f Finding) String() string {
	if f.Page == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Page, f.Message)
}

// Report is the outcome of an audit.
type Report struct {
	Pages      int       `json:"pages"`
	References int       `json:"references"`
	Findings   []Finding `json:"findings"`
}

// OK reports whether the audit found nothing.
func (r *Report) OK() bool {
	return len(r.Findings) == 0
}

// Auditor audits a collected site.
type Auditor struct {
	OfflinePage string
}

// New returns an Auditor expecting the given offline page URL.
func New(offlinePage string) *Auditor {
	return &Auditor{OfflinePage: offlinePage}
}

// Run parses every HTML asset and reports references that are not in the
// asset list. Each missing reference is reported once per page.
func (a *Auditor) Run(ctx context.Context, list []assets.Asset) (*Report, error) {
	cached := make(map[string]bool, len(list))
	for _, asset := range list {
		cached[asset.URL] = true
	}

	report := &Report{Findings: []Finding{}}

	if a.OfflinePage != "" && !cached[a.OfflinePage] {
		report.Findings = append(report.Findings, Finding{
			Kind:      KindMissingOffline,
			Reference: a.OfflinePage,
			Message:   fmt.Sprintf("offline page %s is not precached", a.OfflinePage),
		})
	}

	for _, asset := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !strings.EqualFold(path.Ext(asset.URL), ".html") {
			continue
		}

		report.Pages++
		refs, err := pageReferences(asset.Path)
		if err != nil {
			report.Findings = append(report.Findings, Finding{
				Kind:    KindParseError,
				Page:    asset.URL,
				Message: err.Error(),
			})
			continue
		}

		seen := make(map[string]bool)
		for _, raw := range refs {
			target, ok := Resolve(asset.URL, raw)
			if !ok {
				continue
			}
			report.References++
			if cached[target] || seen[target] {
				continue
			}
			seen[target] = true
			report.Findings = append(report.Findings, Finding{
				Kind:      KindUncached,
				Page:      asset.URL,
				Reference: target,
				Message:   fmt.Sprintf("%s is not precached", target),
			})
		}
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		return report.Findings[i].Page < report.Findings[j].Page
	})

	return report, nil
}

func pageReferences(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return References(doc), nil
}

// References returns the raw href and src values of the elements that load
// or navigate to site resources, in document order.
func References(doc *html.Node) []string {
	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr := referenceAttr(n.DataAtom); attr != "" {
				for _, a := range n.Attr {
					if a.Namespace == "" && a.Key == attr && strings.TrimSpace(a.Val) != "" {
						refs = append(refs, strings.TrimSpace(a.Val))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs
}

func referenceAttr(a atom.Atom) string {
	switch a {
	case atom.Link, atom.A:
		return "href"
	case atom.Script, atom.Img, atom.Source, atom.Iframe:
		return "src"
	}
	return ""
}

// Resolve maps a reference found on page to the site-absolute URL the
// service worker would see. It reports false for references that leave the
// site or do not name a resource.
func Resolve(page, ref string) (string, bool) {
	if strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}

	base := path.Base(u.Path)
	trailing := strings.HasSuffix(u.Path, "/") || base == "." || base == ".."

	target := u.Path
	if strings.HasPrefix(target, "/") {
		target = path.Clean(target)
	} else {
		target = path.Join(path.Dir(page), target)
	}
	if trailing && target != "/" {
		target += "/"
	}

	if strings.HasSuffix(target, "/") {
		target += "index.html"
	}

	return norm.NFC.String(target), true
}
