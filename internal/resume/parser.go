// Package resume handles resume file ingestion: saving uploads and
// extracting plain text from supported formats. The pipeline downstream
// only ever sees the extracted text.
package resume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedFormat is returned for file types outside the
	// whitelist.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrExtractionFailed is returned when a supported file yields no
	// text.
	ErrExtractionFailed = errors.New("text extraction failed")
)

var supportedExtensions = map[string]bool{
	".txt": true,
	".pdf": true,
}

// SaveUpload writes the uploaded bytes under dir with a fresh name,
// keeping the original extension. The extension is validated before
// anything touches disk.
func SaveUpload(dir, originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !supportedExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	return path, nil
}

// ParseFile extracts plain text from a .txt or .pdf file. The result is
// trimmed; an empty extraction is an error, not an empty resume.
func ParseFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file does not exist: %w", err)
	}

	var text string

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		text = string(data)
	case ".pdf":
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		text = res.Body
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrExtractionFailed
	}

	return text, nil
}
