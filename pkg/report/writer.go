package report

import (
	"fmt"
	"path/filepath"

	"github.com/user/framesift/pkg/ports"
)

// Writer writes formatted reports through a FileSystem.
type Writer struct {
	formatter Formatter
	fs        ports.FileSystem
}

// NewWriter creates a Writer.
func NewWriter(formatter Formatter, fs ports.FileSystem) *Writer {
	return &Writer{formatter: formatter, fs: fs}
}

// Write formats r and writes it to path, creating parent directories.
func (w *Writer) Write(path string, r *Report) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := w.fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := w.fs.WriteFile(path, []byte(w.formatter.Format(r))); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
