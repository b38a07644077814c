// Package sitecopy copies PWA support files from the docs directory into
// the built site.
package sitecopy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	siteerrors "github.com/conneroisu/sitekit/internal/errors"
	"github.com/conneroisu/sitekit/internal/logging"
)

// Status is the outcome of copying one file. A file is unchanged when its
// source and destination are the same file.
type Status string

const (
	StatusCopied    Status = "copied"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result describes what happened to a single support file.
type Result struct {
	File   string `json:"file"`
	Source string `json:"source"`
	Dest   string `json:"dest"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates the results of a copy run.
type Summary struct {
	Results   []Result `json:"results"`
	Copied    int      `json:"copied"`
	Unchanged int      `json:"unchanged"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
}

// Copier copies a fixed list of files between two directories.
type Copier struct {
	docsDir string
	siteDir string
	files   []string
	logger  logging.Logger
	errors  *siteerrors.ErrorCollector
}

// New creates a Copier. A nil logger discards output.
func New(docsDir, siteDir string, files []string, logger logging.Logger) *Copier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Copier{
		docsDir: docsDir,
		siteDir: siteDir,
		files:   files,
		logger:  logger.WithComponent("sitecopy"),
		errors:  siteerrors.NewErrorCollector(),
	}
}

// CheckSiteDir returns ERR_SITE_NOT_FOUND unless dir is an existing
// directory.
func CheckSiteDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return siteerrors.ErrSiteNotFound(dir, err)
	}
	if !info.IsDir() {
		return siteerrors.ErrSiteNotFound(dir, fmt.Errorf("not a directory"))
	}
	return nil
}

// Copy copies every configured file. Missing sources are skipped and
// individual copy failures are recorded without stopping the run. The only
// fatal errors are a missing site directory and context cancellation.
// Destinations are replaced atomically, so a failed copy leaves the
// previous file in place.
func (c *Copier) Copy(ctx context.Context) (*Summary, error) {
	if err := CheckSiteDir(c.siteDir); err != nil {
		return nil, err
	}

	summary := &Summary{Results: make([]Result, 0, len(c.files))}
	for _, name := range c.files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := Result{
			File:   name,
			Source: filepath.Join(c.docsDir, name),
			Dest:   filepath.Join(c.siteDir, name),
		}

		srcInfo, err := os.Stat(result.Source)
		if errors.Is(err, fs.ErrNotExist) {
			result.Status = StatusSkipped
			summary.Skipped++
			c.logger.Warn(ctx, nil, "Support file not found, skipping", "file", result.Source)
			summary.Results = append(summary.Results, result)
			continue
		}

		if err == nil && !srcInfo.Mode().IsRegular() {
			err = fmt.Errorf("source is not a regular file")
		}
		if err == nil && sameFile(srcInfo, result.Dest) {
			result.Status = StatusUnchanged
			summary.Unchanged++
			c.logger.Info(ctx, "Support file already in place", "file", name)
			summary.Results = append(summary.Results, result)
			continue
		}
		if err == nil {
			err = copyFile(result.Source, result.Dest)
		}

		if err != nil {
			result.Status = StatusFailed
			result.Error = err.Error()
			summary.Failed++
			c.errors.Add(siteerrors.FileError{
				File: result.Source,
				Op:   "copy",
				Err:  siteerrors.NewIOError(siteerrors.ErrCodeCopyFailed, "failed to copy support file", err).WithPath(result.Dest),
			})
			c.logger.Error(ctx, err, "Failed to copy support file", "file", name)
		} else {
			result.Status = StatusCopied
			summary.Copied++
			c.logger.Info(ctx, "Copied support file", "file", name, "dest", result.Dest)
		}

		summary.Results = append(summary.Results, result)
	}

	if c.errors.HasErrors() {
		c.logger.Warn(ctx, nil, "Some support files were not copied", "failed", summary.Failed)
	}

	return summary, nil
}

// Errors returns the failures collected by previous Copy calls.
func (c *Copier) Errors() []siteerrors.FileError {
	return c.errors.GetErrors()
}

func sameFile(src os.FileInfo, dest string) bool {
	destInfo, err := os.Stat(dest)
	return err == nil && os.SameFile(src, destInfo)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := renameio.NewPendingFile(dest,
		renameio.WithTempDir(filepath.Dir(dest)),
		renameio.WithPermissions(0644),
	)
	if err != nil {
		return err
	}
	defer out.Cleanup()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.CloseAtomicallyReplace()
}
