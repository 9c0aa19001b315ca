package utils

import (
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"blogicum/config"
)

var (
	// ErrImageTooLarge is returned when an upload exceeds the configured cap.
	ErrImageTooLarge = errors.New("image exceeds upload size limit")
	// ErrImageType is returned for file extensions that are not images.
	ErrImageType = errors.New("unsupported image type")
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// SavePostImage stores an uploaded post image under the media root with a
// random name and returns its public URL and filesystem path.
func SavePostImage(header *multipart.FileHeader) (string, string, error) {
	cfg := config.Get()
	maxSize := int64(cfg.MaxUploadMB) * 1024 * 1024

	if header.Size > maxSize {
		return "", "", ErrImageTooLarge
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] {
		return "", "", ErrImageType
	}

	src, err := header.Open()
	if err != nil {
		return "", "", err
	}
	defer src.Close()

	now := time.Now()
	dir := filepath.Join(cfg.MediaRoot, "posts_images", now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	name := uuid.NewString() + ext
	dstPath := filepath.Join(dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", "", err
	}
	defer dst.Close()

	// The multipart reader already enforced Size; limit again on copy so a
	// lying Content-Length cannot slip past.
	written, err := io.Copy(dst, &io.LimitedReader{R: src, N: maxSize + 1})
	if err != nil {
		_ = os.Remove(dstPath)
		return "", "", err
	}
	if written > maxSize {
		_ = os.Remove(dstPath)
		return "", "", ErrImageTooLarge
	}

	url := path.Join("/media", "posts_images", now.Format("2006"), now.Format("01"), name)
	return url, dstPath, nil
}
