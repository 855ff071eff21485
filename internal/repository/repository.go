package repository

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/capitals/internal/models"
)

// Repository stores pipeline snapshots as JSON files. Each stage reads one file and writes a new one,
// so there is never more than one writer per file.
type Repository struct {
	log *slog.Logger
}

type Interface interface {
	ReadRaw(ctx context.Context, path string) ([]byte, error)
	LoadDataset(ctx context.Context, path string) (*models.Dataset, error)
	SaveDataset(ctx context.Context, path string, dataset *models.Dataset) error
	SaveReport(ctx context.Context, path string, report any) error
}

// NewRepository creates a new instance of Repository.
// It returns a pointer to the newly created Repository.
func NewRepository(log *slog.Logger) *Repository {
	return &Repository{log: log}
}
