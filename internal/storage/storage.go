package storage

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/xerrors"
)

var ErrReadOnly = errors.New("storage backend is read-only")

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

// Router writes to a primary backend and reads from whichever backend owns
// the URL scheme, falling back to the primary.
type Router struct {
	Primary Storage
	Schemes map[string]Storage
}

func (r *Router) Put(ctx context.Context, key string, data []byte) (string, error) {
	return r.Primary.Put(ctx, key, data)
}

func (r *Router) Get(ctx context.Context, url string) ([]byte, error) {
	if scheme, _, ok := strings.Cut(url, "://"); ok {
		if s, ok := r.Schemes[strings.ToLower(scheme)]; ok {
			return s.Get(ctx, url)
		}
	}
	return r.Primary.Get(ctx, url)
}

type Config struct {
	// Backend is where results are written, file or s3.
	Backend     string
	Directory   string
	Bucket      string
	EndpointURL string
	HTTP        HTTPConfig
}

// New builds a Router whose primary backend is selected by c.Backend and
// which can additionally read file://, s3://, http:// and https:// URLs.
func New(ctx context.Context, c Config) (*Router, error) {
	file, err := NewFileStorage(ctx, FileConfig{
		Directory: c.Directory,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to create file storage backend: %w", err)
	}

	s3, err := NewS3Storage(ctx, S3Config{
		Bucket:      c.Bucket,
		EndpointURL: c.EndpointURL,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to create S3 storage backend: %w", err)
	}

	h, err := NewHTTPStorage(ctx, c.HTTP)
	if err != nil {
		return nil, xerrors.Errorf("failed to create HTTP storage backend: %w", err)
	}

	router := &Router{
		Schemes: map[string]Storage{
			"file":  file,
			"s3":    s3,
			"http":  h,
			"https": h,
		},
	}

	switch c.Backend {
	case "file", "":
		router.Primary = file
	case "s3":
		router.Primary = s3
	default:
		return nil, xerrors.Errorf("unknown storage backend: %s", c.Backend)
	}

	return router, nil
}
