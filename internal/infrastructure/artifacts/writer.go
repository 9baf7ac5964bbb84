package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
)

const (
	maxFilenameLength = 100
	invalidFilename   = `<>:"/\|?*`
	fallbackName      = "untitled"
)

// FileWriter stores ScriptRecords and run summaries as JSON under a root directory.
type FileWriter struct {
	root string

	mu sync.Mutex
}

var _ ports.ArtifactWriter = (*FileWriter)(nil)

// NewFileWriter roots all artifacts at dir.
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{root: dir}
}

// WriteScript saves a script as videos/<date>/script_<HHMMSS>_<title>.json. A name already
// taken gets a numeric suffix, so scripts sharing a title and timestamp never overwrite each other.
func (w *FileWriter) WriteScript(ctx context.Context, script domain.ScriptRecord, at time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := SafeFilename(script.Title, maxFilenameLength)
	if name == "" {
		name = fallbackName
	}
	dir := filepath.Join(w.root, "videos", at.Format("2006-01-02"))
	return w.writeUnique(dir, fmt.Sprintf("script_%s_%s", at.Format("150405"), name), script)
}

// WriteRun saves the batch summary as runs/run_<timestamp>.json.
func (w *FileWriter) WriteRun(ctx context.Context, result domain.PipelineBatchResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(w.root, "runs")
	return w.writeUnique(dir, "run_"+result.StartedAt.Format("20060102_150405"), result)
}

func (w *FileWriter) writeUnique(dir, stem string, v any) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Join(dir, stem+".json")
	for n := 2; ; n++ {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.json", stem, n))
	}
	if err := writeJSON(dir, path, v); err != nil {
		return "", err
	}
	return path, nil
}

func writeJSON(dir, path string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// SafeFilename drops characters that are invalid in file names, collapses whitespace
// and caps the result at maxRunes, cutting on a word boundary when possible.
func SafeFilename(name string, maxRunes int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFilename, r) {
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")

	runes := []rune(name)
	if maxRunes > 0 && len(runes) > maxRunes {
		cut := string(runes[:maxRunes])
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		name = cut
	}
	return strings.TrimSpace(name)
}
