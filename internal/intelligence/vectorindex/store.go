package vectorindex

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// ErrNotExist is returned by Store.Open when nothing has been persisted yet.
var ErrNotExist = errors.New("vectorindex: persisted index not found")

// Store persists encoded snapshots.
type Store interface {
	// Open returns the persisted bytes or ErrNotExist.
	Open(ctx context.Context) (io.ReadCloser, error)
	// Save replaces the persisted bytes with size bytes read from r.
	Save(ctx context.Context, r io.Reader, size int64) error
	// Location describes where the index lives, for logs.
	Location() string
}

// DefaultPath derives the index path from the corpus path by swapping the
// extension for ".embeddings.bin".
func DefaultPath(corpusPath string) string {
	return strings.TrimSuffix(corpusPath, filepath.Ext(corpusPath)) + ".embeddings.bin"
}

// FileStore keeps the index in a local file and replaces it atomically.
type FileStore struct {
	path string
}

// NewFileStore returns a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Location() string { return s.path }

func (s *FileStore) Open(context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorage, "open index file").WithDetail(s.path)
	}
	return f, nil
}

func (s *FileStore) Save(_ context.Context, r io.Reader, _ int64) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CodeIndexPersist, "create index directory").WithDetail(dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeIndexPersist, "create temp index file").WithDetail(dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return apperrors.Wrap(err, apperrors.CodeIndexPersist, "write index file").WithDetail(s.path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.Wrap(err, apperrors.CodeIndexPersist, "sync index file").WithDetail(s.path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeIndexPersist, "close index file").WithDetail(s.path)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return apperrors.Wrap(err, apperrors.CodeIndexPersist, "replace index file").WithDetail(s.path)
	}
	return nil
}
