package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Storage persists uploaded files and hands back an opaque reference that
// callers store as-is (a relative /uploads path or an absolute URL).
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
	Name() string
}

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

func NewStorage(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Storage, error) {
	switch cfg.StorageBackend {
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "minio":
		return NewMinIOStorage(ctx, cfg)
	case "cloudinary":
		return NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryFolder)
	case "local", "":
		return NewLocalStorage(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// FileStore validates uploads and names them before they reach the backend.
type FileStore struct {
	backend Storage
	maxSize int64
	allowed []string
	log     *logrus.Logger
}

func NewFileStore(backend Storage, maxSize int64, allowed []string, log *logrus.Logger) *FileStore {
	return &FileStore{backend: backend, maxSize: maxSize, allowed: allowed, log: log}
}

// Store writes u under prefix and returns the stored reference.
func (f *FileStore) Store(ctx context.Context, prefix string, u Upload) (string, error) {
	if err := ValidateUpload(u.Filename, u.Size, f.maxSize, f.allowed); err != nil {
		return "", err
	}
	key := path.Join(prefix, uuid.NewString()+fileExt(u.Filename))
	ref, err := f.backend.Save(ctx, key, u.Body, u.Size, u.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to store %s on %s: %w", key, f.backend.Name(), err)
	}
	return ref, nil
}

// Discard removes a previously stored object; failures are only logged.
func (f *FileStore) Discard(ctx context.Context, ref *string) {
	if ref == nil || *ref == "" {
		return
	}
	if err := f.backend.Delete(ctx, *ref); err != nil {
		f.log.WithError(err).WithField("ref", *ref).Warn("Failed to delete stored file")
	}
}

func ValidateUpload(filename string, size, maxSize int64, allowed []string) error {
	if strings.TrimSpace(filename) == "" {
		return apperrors.Validation("File is required")
	}
	ext := strings.TrimPrefix(fileExt(filename), ".")
	ok := false
	for _, a := range allowed {
		if a == ext {
			ok = true
			break
		}
	}
	if !ok {
		return apperrors.Validation(fmt.Sprintf("File type not allowed, allowed types are: %s", strings.Join(allowed, ", ")))
	}
	if maxSize > 0 && size > maxSize {
		return apperrors.Validation(fmt.Sprintf("File too large, maximum size is %d bytes", maxSize))
	}
	return nil
}

// ResolveURL turns a stored reference into something a client can fetch.
func ResolveURL(baseURL, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}

func fileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
