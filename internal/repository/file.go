package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/capitals/internal/models"
)

// ReadRaw returns the content of a stage file.
func (r *Repository) ReadRaw(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	r.log.DebugContext(ctx, "Stage file read", "path", path, "bytes", len(data))

	return data, nil
}

// LoadDataset reads and decodes a stage file. Decoding failures wrap models.ErrMalformedInput.
func (r *Repository) LoadDataset(ctx context.Context, path string) (*models.Dataset, error) {
	data, err := r.ReadRaw(ctx, path)
	if err != nil {
		return nil, err
	}

	dataset, err := models.DecodeDataset(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	r.log.DebugContext(ctx, "Dataset loaded", "path", path, "records", len(dataset.States))

	return dataset, nil
}

// SaveDataset writes the dataset as indented UTF-8 JSON.
func (r *Repository) SaveDataset(ctx context.Context, path string, dataset *models.Dataset) error {
	if err := r.writeJSON(path, dataset); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}

	r.log.InfoContext(ctx, "Dataset saved", "path", path, "records", len(dataset.States))

	return nil
}

// SaveReport writes a stage report as indented JSON.
func (r *Repository) SaveReport(ctx context.Context, path string, report any) error {
	if err := r.writeJSON(path, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	r.log.InfoContext(ctx, "Report saved", "path", path)

	return nil
}

// writeJSON replaces path atomically: the document is written to a temporary file in the same
// directory and renamed over the target.
func (r *Repository) writeJSON(path string, value any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	const dirPerm = 0o755
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	const filePerm = 0o644
	if err = os.Chmod(tmp.Name(), filePerm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
