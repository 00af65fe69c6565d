package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"

	"recipehub/models"

	"github.com/google/uuid"
)

func GetUUID() string {
	return uuid.New().String()
}

// --- Image Validation ---

var SupportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

func ValidateImageFileType(header *multipart.FileHeader) error {
	mimeType := header.Header.Get("Content-Type")
	if !SupportedImageTypes[mimeType] {
		return models.NewValidationError(
			fmt.Sprintf("Invalid file type %q. Supported formats: JPEG, PNG, GIF, BMP, TIFF.", mimeType), nil)
	}
	return nil
}

func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

var unsafeFilename = regexp.MustCompile(`[^\w.\-]`)

func SanitizeFilename(name string) string {
	clean := unsafeFilename.ReplaceAllString(filepath.Base(name), "_")
	if clean == "" || clean == "." || clean == "_" {
		return "file"
	}
	return clean
}
