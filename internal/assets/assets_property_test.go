//go:build property
// +build property

package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type siteFile struct {
	Dir  string
	Name string
	Ext  string
}

// TestCollectorProperties checks that the collected URL set is exactly the
// set of cacheable files written to a random site tree.
func TestCollectorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	fileGen := gopter.CombineGens(
		gen.OneConstOf("", "assets", "assets/js", "guide/intro", "node_modules/x", ".git", "docs/.cache"),
		gen.Identifier(),
		gen.OneConstOf(".html", ".CSS", ".js", ".json", ".png", ".woff2", ".md", ".xml", ".map", ""),
	).Map(func(values []interface{}) siteFile {
		return siteFile{Dir: values[0].(string), Name: "f" + values[1].(string), Ext: values[2].(string)}
	})

	properties.Property("collected URLs equal cacheable files", prop.ForAll(
		func(files []siteFile) bool {
			root, err := os.MkdirTemp("", "sitekit-assets-")
			if err != nil {
				return false
			}
			defer os.RemoveAll(root)

			c := NewCollector(root, defaultOptions)
			// Later files overwrite earlier ones with the same name.
			expected := make(map[string]bool)
			for _, f := range files {
				rel := filepath.Join(filepath.FromSlash(f.Dir), f.Name+f.Ext)
				path := filepath.Join(root, rel)
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					return false
				}
				if err := os.WriteFile(path, []byte(f.Name), 0644); err != nil {
					return false
				}
				if expectCacheable(f) {
					expected["/"+filepath.ToSlash(rel)] = true
				}
			}

			got, err := c.Collect(context.Background())
			if err != nil || len(got) != len(expected) {
				return false
			}

			for _, u := range URLs(got) {
				if !expected[u] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(fileGen),
	))

	properties.TestingRun(t)
}

func expectCacheable(f siteFile) bool {
	switch strings.ToLower(f.Ext) {
	case ".html", ".css", ".js", ".json", ".png", ".woff2":
	default:
		return false
	}
	if f.Dir == "" && f.Name+f.Ext == "sw.js" {
		return false
	}
	for _, part := range strings.Split(f.Dir, "/") {
		if part == "node_modules" || part == ".git" || part == ".cache" {
			return false
		}
	}
	return true
}
