package repository_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/UnknownOlympus/capitals/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDataset(t *testing.T) {
	defer filet.CleanUp(t)
	logger := slog.Default()
	ctx := context.Background()
	repo := repository.NewRepository(logger)
	dir := filet.TmpDir(t, "")

	t.Run("object form", func(t *testing.T) {
		file := filet.TmpFile(t, dir, `{"metadata":{"title":"t"},"states":[{"state":"Texas","state_abbr":"TX"}]}`)

		dataset, err := repo.LoadDataset(ctx, file.Name())

		require.NoError(t, err)
		require.Len(t, dataset.States, 1)
		assert.Equal(t, "Texas", dataset.States[0].State)
		assert.Equal(t, "t", dataset.Metadata["title"])
	})

	t.Run("bare list form", func(t *testing.T) {
		file := filet.TmpFile(t, dir, `[{"state":"Ohio","state_abbr":"OH"},{"state":"Utah","state_abbr":"UT"}]`)

		dataset, err := repo.LoadDataset(ctx, file.Name())

		require.NoError(t, err)
		require.Len(t, dataset.States, 2)
		assert.NotNil(t, dataset.Metadata)
	})

	t.Run("invalid json", func(t *testing.T) {
		file := filet.TmpFile(t, dir, `{"states": [`)

		dataset, err := repo.LoadDataset(ctx, file.Name())

		require.Nil(t, dataset)
		require.ErrorIs(t, err, models.ErrMalformedInput)
	})

	t.Run("object without states", func(t *testing.T) {
		file := filet.TmpFile(t, dir, `{"metadata":{}}`)

		_, err := repo.LoadDataset(ctx, file.Name())

		require.ErrorIs(t, err, models.ErrMalformedInput)
		assert.Contains(t, err.Error(), "states")
	})

	t.Run("scalar document", func(t *testing.T) {
		file := filet.TmpFile(t, dir, `42`)

		_, err := repo.LoadDataset(ctx, file.Name())

		require.ErrorIs(t, err, models.ErrMalformedInput)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := repo.LoadDataset(ctx, filepath.Join(dir, "absent.json"))

		require.Error(t, err)
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.NotErrorIs(t, err, models.ErrMalformedInput)
	})
}

func TestSaveDataset(t *testing.T) {
	defer filet.CleanUp(t)
	repo := repository.NewRepository(slog.Default())
	ctx := context.Background()
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "nested", "out.json")

	lat, lon := 38.576668, -121.493629
	dataset := models.NewDataset([]models.Record{{
		State:           "California",
		StateAbbr:       "CA",
		Latitude:        &lat,
		Longitude:       &lon,
		GeocodingStatus: models.StatusSuccess,
	}})
	dataset.SetSection("geocoding", map[string]any{"service": "nominatim"})

	require.NoError(t, repo.SaveDataset(ctx, path, dataset))
	assert.True(t, filet.Exists(t, path))

	loaded, err := repo.LoadDataset(ctx, path)
	require.NoError(t, err)
	require.Len(t, loaded.States, 1)
	assert.InEpsilon(t, lat, *loaded.States[0].Latitude, 1e-9)
	assert.Contains(t, loaded.Metadata, "geocoding")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSaveReport(t *testing.T) {
	defer filet.CleanUp(t)
	repo := repository.NewRepository(slog.Default())
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "report.json")

	report := map[string]any{"passed": true, "address": "1315 10TH ST & more"}
	require.NoError(t, repo.SaveReport(context.Background(), path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "10TH ST & more", "HTML characters must not be escaped")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["passed"])
}
