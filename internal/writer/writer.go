package writer

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Writer persists rendered files, either overwriting the originals or
// collecting them under a separate output directory.
type Writer struct {
	fs        afero.Fs
	outputDir string
}

func New(fsys afero.Fs, outputDir string) *Writer {
	return &Writer{fs: fsys, outputDir: outputDir}
}

// InPlace reports whether writes overwrite the original files.
func (w *Writer) InPlace() bool {
	return w.outputDir == ""
}

// Write stores content for origPath and returns the path it was written to.
func (w *Writer) Write(origPath, content string) (string, error) {
	dest := origPath
	if !w.InPlace() {
		if err := w.fs.MkdirAll(w.outputDir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory %s: %w", w.outputDir, err)
		}
		dest = filepath.Join(w.outputDir, filepath.Base(origPath))
	}
	if err := afero.WriteFile(w.fs, dest, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}
