// Package assets enumerates the cacheable files of a built site and turns
// them into the site-absolute URLs precached by the service worker.
package assets

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// Asset is a single cacheable file of the built site.
type Asset struct {
	URL    string `json:"url"`
	Path   string `json:"-"`
	Size   int64  `json:"size"`
	Digest string `json:"digest,omitempty"`
}

// Options selects which files are collected.
type Options struct {
	// Extensions are matched case-insensitively, dot included.
	Extensions []string
	// SkipDirs are directory names never descended into.
	SkipDirs []string
	// Exclude lists site-absolute URLs left out of the result.
	Exclude []string
}

// Collector walks a site directory and collects cacheable assets.
type Collector struct {
	root       string
	extensions map[string]bool
	skipDirs   map[string]bool
	exclude    map[string]bool
}

// NewCollector creates a collector rooted at the built site directory.
func NewCollector(root string, opts Options) *Collector {
	c := &Collector{
		root:       root,
		extensions: make(map[string]bool, len(opts.Extensions)),
		skipDirs:   make(map[string]bool, len(opts.SkipDirs)),
		exclude:    make(map[string]bool, len(opts.Exclude)),
	}
	for _, ext := range opts.Extensions {
		c.extensions[strings.ToLower(ext)] = true
	}
	for _, dir := range opts.SkipDirs {
		c.skipDirs[dir] = true
	}
	for _, u := range opts.Exclude {
		c.exclude[norm.NFC.String(u)] = true
	}
	return c
}

// Collect walks the site in lexical order and returns every cacheable file.
// The result is de-duplicated by URL and keeps walk order.
func (c *Collector) Collect(ctx context.Context) ([]Asset, error) {
	var assets []Asset
	seen := make(map[string]bool)

	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != c.root && c.skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !c.matchesExtension(path) {
			return nil
		}

		url, err := c.URLFor(path)
		if err != nil {
			return err
		}
		if c.exclude[url] || seen[url] {
			return nil
		}

		// Stat follows symlinks, so linked files report their target size.
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil
		}

		seen[url] = true
		assets = append(assets, Asset{
			URL:  url,
			Path: path,
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assets, nil
}

// IsCacheable reports whether the file at path would be collected.
func (c *Collector) IsCacheable(path string) bool {
	if !c.matchesExtension(path) {
		return false
	}

	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		if c.skipDirs[dir] {
			return false
		}
	}

	url, err := c.URLFor(path)
	return err == nil && !c.exclude[url]
}

// URLFor maps a file below the site root to its site-absolute URL.
func (c *Collector) URLFor(path string) (string, error) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s against %s: %w", path, c.root, err)
	}
	return norm.NFC.String("/" + filepath.ToSlash(rel)), nil
}

func (c *Collector) matchesExtension(path string) bool {
	return c.extensions[strings.ToLower(filepath.Ext(path))]
}

// URLs returns the URLs of the given assets in order.
func URLs(assets []Asset) []string {
	urls := make([]string, len(assets))
	for i, a := range assets {
		urls[i] = a.URL
	}
	return urls
}

// TotalSize sums the size of the given assets.
func TotalSize(assets []Asset) int64 {
	var total int64
	for _, a := range assets {
		total += a.Size
	}
	return total
}

// FileDigest returns the hex blake3 digest of a file's content.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeDigests fills the Digest field of every asset, hashing up to one
// file per CPU at a time. The first error stops the remaining work.
func ComputeDigests(ctx context.Context, assets []Asset) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := range assets {
		if ctx.Err() != nil {
			break
		}
		a := &assets[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			digest, err := FileDigest(a.Path)
			if err != nil {
				return fmt.Errorf("failed to hash %s: %w", a.Path, err)
			}
			a.Digest = digest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
