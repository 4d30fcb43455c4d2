package run

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/molprop/platform/pkg/errors"
)

// Bundle writes the whole run directory as a deflated zip archive.  Archive
// entry names are relative to the run directory, so unpacking recreates
// inputs/, outputs/, and logs/ side by side.
func (c Context) Bundle(w io.Writer) error {
	zw := zip.NewWriter(w)

	err := filepath.Walk(c.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(c.Dir, path)
		if err != nil {
			return err
		}
		entry, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		zw.Close()
		return errors.Wrap(err, errors.ErrCodeRunBundleFailed, "cannot archive run directory")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeRunBundleFailed, "cannot finalize run archive")
	}
	return nil
}

// BundleBytes is Bundle into memory, for download handlers and object
// storage uploads.
func (c Context) BundleBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Bundle(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
