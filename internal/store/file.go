package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/icp-research/internal/model"
)

// FileStore keeps the record as a single JSON document on disk.
type FileStore struct {
	path string
}

// NewFile returns a FileStore writing to path.
func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Migrate(_ context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "file: create dir %s", dir)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (*model.MemoryRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file: read %s", s.path)
	}
	return decodeRecord(data)
}

// Save writes the record to a temp file in the same directory and renames
// it over the document, so readers never observe a partial write.
func (s *FileStore) Save(_ context.Context, rec *model.MemoryRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return eris.Wrap(err, "file: marshal record")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "file: create temp")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "file: write temp")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "file: sync temp")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "file: close temp")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return eris.Wrapf(err, "file: rename to %s", s.path)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
