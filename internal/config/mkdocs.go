package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MkDocsInfo holds the MkDocs project settings sitekit cares about.
type MkDocsInfo struct {
	SiteName string
	SiteDir  string
	DocsDir  string
}

// ReadMkDocs reads the top-level keys of an MkDocs project file.
//
// The file is decoded as a node tree rather than into a struct: MkDocs
// projects routinely carry Python-specific tags (!!python/name:...) in
// markdown_extensions, which a typed decode would reject.
func ReadMkDocs(path string) (*MkDocsInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseMkDocs(data)
}

// ParseMkDocs extracts site_name, site_dir and docs_dir from MkDocs YAML.
func ParseMkDocs(data []byte) (*MkDocsInfo, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse mkdocs file: %w", err)
	}

	info := &MkDocsInfo{}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return info, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("mkdocs file must contain a mapping at the top level")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			continue
		}
		switch key.Value {
		case "site_name":
			info.SiteName = value.Value
		case "site_dir":
			info.SiteDir = value.Value
		case "docs_dir":
			info.DocsDir = value.Value
		}
	}

	return info, nil
}
