// Package storage keeps uploaded files (documents and avatars) on an afero
// filesystem. Production uses the OS filesystem rooted at storage.root; tests
// use an in-memory one.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var ErrObjectNotFound = errors.New("storage: object not found")

// Object describes a stored file.
type Object struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

type Store struct {
	fs            afero.Fs
	publicBaseURL string
	maxBytes      int64
	logger        *slog.Logger
}

func NewStore(fs afero.Fs, cfg internal.StorageConfig, logger *slog.Logger) *Store {
	return &Store{
		fs:            fs,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:      cfg.MaxUploadBytes(),
		logger:        logger,
	}
}

// NewOSStore roots the store at cfg.Root on the local disk, creating it if needed.
func NewOSStore(cfg internal.StorageConfig, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), cfg.Root), cfg, logger), nil
}

func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Key builds a collision-free object key under prefix, keeping the extension
// of the original filename.
func Key(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(prefix, uuid.NewString()+ext)
}

// Save writes r under key. Uploads larger than the configured limit are
// rejected and nothing is left behind.
func (s *Store) Save(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	if err := s.fs.MkdirAll(path.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := s.fs.Create(clean)
	if err != nil {
		return nil, fmt.Errorf("create object: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxBytes {
		err = internal.NewValidationFieldError("file", fmt.Sprintf("file must not exceed %d bytes", s.maxBytes), internal.ErrCodeValidationFailed)
	}
	if err != nil {
		if rmErr := s.fs.Remove(clean); rmErr != nil {
			s.logger.Warn("failed to remove partial upload", "key", clean, "error", rmErr)
		}
		return nil, err
	}

	s.logger.Debug("object stored", "key", clean, "size", n)
	return &Object{Key: clean, URL: s.URL(clean), Size: n, ContentType: contentType}, nil
}

// Open returns a reader for key. The caller closes it.
func (s *Store) Open(_ context.Context, key string) (afero.File, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(clean); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL is the public address of key. Without a public base URL it is the
// key itself, served through the API.
func (s *Store) URL(key string) string {
	if s.publicBaseURL == "" {
		return "/" + key
	}
	return s.publicBaseURL + "/" + key
}

// FileServer serves the objects under prefix read-only. Directory listings
// are refused.
func (s *Store) FileServer(prefix string) http.Handler {
	files := http.FileServer(afero.NewHttpFs(s.fs).Dir(strings.Trim(prefix, "/")))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return clean, nil
}
