package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"inkwell/internal/config"

	"github.com/google/uuid"
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageUploader stores uploaded images on local disk under per-kind
// subdirectories (avatars, posts) with random filenames.
type ImageUploader struct {
	dir     string
	maxSize int64
}

func NewImageUploader(cfg *config.Config) *ImageUploader {
	return &ImageUploader{dir: cfg.UploadDir, maxSize: cfg.MaxUploadSize}
}

// Save validates and writes the uploaded file, returning the stored
// filename (relative to the kind subdirectory).
func (u *ImageUploader) Save(file multipart.File, header *multipart.FileHeader, kind string) (string, error) {
	if header.Size > u.maxSize {
		return "", validationErr("image", fmt.Sprintf("Image exceeds the %d MB limit.", u.maxSize>>20))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		return "", validationErr("image", "Only jpg, jpeg, png, gif and webp images are allowed.")
	}

	dir := filepath.Join(u.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	filename := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, u.maxSize+1)); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return filename, nil
}

// Remove deletes a previously stored image. Missing files are not an error.
func (u *ImageUploader) Remove(kind, filename string) error {
	if filename == "" {
		return nil
	}
	// Reject anything that could escape the upload directory.
	if filepath.Base(filename) != filename {
		return fmt.Errorf("invalid filename %q", filename)
	}
	err := os.Remove(filepath.Join(u.dir, kind, filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL builds the public path for a stored image.
func (u *ImageUploader) URL(kind, filename string) string {
	if filename == "" {
		return ""
	}
	return "/static/uploads/" + kind + "/" + filename
}
