// Package webmanifest stamps the build version into web app manifests.
package webmanifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"

	siteerrors "github.com/conneroisu/sitekit/internal/errors"
)

// Keys set to the build version.
const (
	VersionKey     = "version"
	VersionNameKey = "version_name"
)

// StampBytes sets version and version_name in a manifest document. Every
// other member keeps its value and position. Comments and trailing commas
// are accepted on input; the output is plain JSON indented with two spaces
// and no trailing newline.
func StampBytes(data []byte, version string) ([]byte, error) {
	doc := jsonc.ToJSON(data)
	if !json.Valid(doc) {
		return nil, fmt.Errorf("malformed JSON")
	}
	if !gjson.ParseBytes(doc).IsObject() {
		return nil, fmt.Errorf("manifest must be a JSON object")
	}

	var err error
	for _, key := range []string{VersionKey, VersionNameKey} {
		doc, err = sjson.SetBytes(doc, key, version)
		if err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(doc), "", "  "); err != nil {
		return nil, fmt.Errorf("failed to format manifest: %w", err)
	}
	return out.Bytes(), nil
}

// Stamp rewrites the manifest at path in place, keeping its permissions. It
// reports false without error when the file does not exist.
func Stamp(path, version string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, siteerrors.NewIOError(siteerrors.ErrCodeWriteFailed, "failed to stat manifest", err).WithPath(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, siteerrors.NewIOError(siteerrors.ErrCodeWriteFailed, "failed to read manifest", err).WithPath(path)
	}

	stamped, err := StampBytes(data, version)
	if err != nil {
		return false, siteerrors.ErrInvalidManifest(path, err)
	}

	err = renameio.WriteFile(path, stamped, info.Mode().Perm(), renameio.WithTempDir(filepath.Dir(path)))
	if err != nil {
		return false, siteerrors.NewIOError(siteerrors.ErrCodeWriteFailed, "failed to write manifest", err).WithPath(path)
	}
	return true, nil
}

// ReadVersion returns the version member of the manifest at path.
func ReadVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	doc := jsonc.ToJSON(data)
	if !json.Valid(doc) {
		return "", siteerrors.ErrInvalidManifest(path, fmt.Errorf("malformed JSON"))
	}
	return gjson.GetBytes(doc, VersionKey).String(), nil
}
