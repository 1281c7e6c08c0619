// Package storage manages the shared on-disk image directory. Uploaded
// sources, files extracted from import archives and processed catalog images
// all share this directory, so every filename is generated uniquely.
package storage

import (
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ImageStore stores image files in a local directory and maps stored names
// to public URLs.
type ImageStore struct {
	baseDir   string
	urlPrefix string
}

// NewImageStore creates an image store rooted at baseDir
func NewImageStore(baseDir, urlPrefix string) (*ImageStore, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &ImageStore{
		baseDir:   baseDir,
		urlPrefix: urlPrefix,
	}, nil
}

// Dir returns the base directory of the store
func (s *ImageStore) Dir() string {
	return s.baseDir
}

// Save writes the reader's contents to a new uniquely named file and returns
// the generated name. ext should include the leading dot; it is normalized
// to lower case.
func (s *ImageStore) Save(r io.Reader, ext string) (string, error) {
	name := uuid.New().String() + strings.ToLower(ext)

	file, err := os.Create(filepath.Join(s.baseDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return name, nil
}

// SaveImage encodes img as JPEG under a new unique name and returns the name
func (s *ImageStore) SaveImage(img image.Image) (string, error) {
	name := uuid.New().String() + ".jpg"

	file, err := os.Create(filepath.Join(s.baseDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	if err := imaging.Encode(file, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return name, nil
}

// Path resolves a stored name to its absolute path within the store
func (s *ImageStore) Path(name string) (string, error) {
	p := filepath.Join(s.baseDir, name)

	// Security: prevent directory traversal
	if !filepath.HasPrefix(filepath.Clean(p), filepath.Clean(s.baseDir)) {
		return "", fmt.Errorf("invalid name: path traversal detected")
	}

	return p, nil
}

// Open returns a reader for the stored file
func (s *ImageStore) Open(name string) (io.ReadCloser, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", name)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *ImageStore) Remove(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}

// URL returns the public URL for a stored name
func (s *ImageStore) URL(name string) string {
	return path.Join(s.urlPrefix, name)
}
