// Package storage keeps uploaded product thumbnails on local disk or in S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"tire-shop/internal/config"

	"github.com/google/uuid"
)

// Store persists uploaded files and returns the public URL they are served from.
type Store interface {
	Save(ctx context.Context, key, contentType string, body io.Reader) (url string, err error)
	Delete(ctx context.Context, key string) error
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DetectImage sniffs the first bytes of an upload and returns its content type
// and file extension. ok is false for anything but jpeg, png, gif and webp.
func DetectImage(head []byte) (contentType, ext string, ok bool) {
	contentType = http.DetectContentType(head)
	ext, ok = imageExtensions[contentType]
	return contentType, ext, ok
}

// ThumbnailKey names the object for a new thumbnail of productID.
func ThumbnailKey(productID, ext string) string {
	return path.Join("products", productID, uuid.NewString()[:8]+ext)
}

// New builds the store selected by cfg.Driver.
func New(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocalStore(cfg.UploadDir, cfg.BaseURL)
	case "s3":
		return NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
