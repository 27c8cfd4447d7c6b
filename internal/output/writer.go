// Package output writes finished result sets to disk.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mapleads/internal/model"
)

// Writer dumps result sets as indented JSON files, one file per scrape.
type Writer struct {
	outputDir string
}

func New(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{outputDir: outputDir}, nil
}

// WriteResults writes records to a file named after the request and
// returns the path.
func (w *Writer) WriteResults(req model.SearchRequest, records []model.BusinessRecord) (string, error) {
	name := fmt.Sprintf("leads_%s_%s_%d.json",
		sanitizeFilename(req.Category),
		sanitizeFilename(req.Region),
		time.Now().Unix())
	path := filepath.Join(w.outputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}

	return path, nil
}

func sanitizeFilename(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	unsafe := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	for _, char := range unsafe {
		s = strings.ReplaceAll(s, char, "_")
	}
	return s
}
