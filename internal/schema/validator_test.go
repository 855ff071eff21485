package schema_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/UnknownOlympus/capitals/internal/reference"
	"github.com/UnknownOlympus/capitals/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canonicalDocument returns the embedded dataset as a generic document that tests can break.
func canonicalDocument(t *testing.T) map[string]any {
	t.Helper()

	var doc map[string]any
	require.NoError(t, json.Unmarshal(reference.CanonicalJSON(), &doc))

	return doc
}

func states(doc map[string]any) []any {
	return doc["states"].([]any)
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return data
}

func TestValidate(t *testing.T) {
	validator := schema.NewValidator(slog.Default())
	ctx := context.Background()

	t.Run("canonical dataset passes", func(t *testing.T) {
		report, err := validator.Validate(ctx, reference.CanonicalJSON())

		require.NoError(t, err)
		assert.True(t, report.Passed)
		assert.Equal(t, 50, report.RecordCount)
		assert.Equal(t, 50, report.ValidRecords)
		assert.Empty(t, report.Issues)
	})

	t.Run("bare list is accepted", func(t *testing.T) {
		doc := canonicalDocument(t)

		report, err := validator.Validate(ctx, marshal(t, states(doc)))

		require.NoError(t, err)
		assert.True(t, report.Passed)
	})

	t.Run("record missing state is named", func(t *testing.T) {
		doc := canonicalDocument(t)
		delete(states(doc)[2].(map[string]any), "state")

		report, err := validator.Validate(ctx, marshal(t, doc))

		require.NoError(t, err)
		assert.False(t, report.Passed)
		assert.Equal(t, 49, report.ValidRecords)
		require.Len(t, report.Issues, 1)
		issue := report.Issues[0]
		assert.Equal(t, models.KindMissingField, issue.Kind)
		assert.Equal(t, "state", issue.Field)
		assert.Equal(t, 2, issue.Index)
		assert.Equal(t, "AZ", issue.Record)
		assert.False(t, report.Structural())
	})

	t.Run("all violations are collected", func(t *testing.T) {
		doc := canonicalDocument(t)
		list := states(doc)
		delete(list[0].(map[string]any), "capital")
		list[1].(map[string]any)["zip_code_5"] = "9980"
		list[3].(map[string]any)["city"] = 42
		list[4].(map[string]any)["state_abbr"] = "AL"
		list[5].(map[string]any)["address_line_1"] = "   "
		list[6].(map[string]any)["zip_code_4"] = "12a4"
		list[7].(map[string]any)["state_abbr"] = "de"

		report, err := validator.Validate(ctx, marshal(t, doc))

		require.NoError(t, err)
		assert.False(t, report.Passed)
		assert.Len(t, report.Issues, 7)
		counts := models.CountByKind(report.Issues)
		assert.Equal(t, 2, counts[models.KindMissingField])
		assert.Equal(t, 4, counts[models.KindInvalidField])
		assert.Equal(t, 1, counts[models.KindDuplicateRecord])
	})

	t.Run("wrong record count", func(t *testing.T) {
		doc := canonicalDocument(t)
		doc["states"] = states(doc)[:49]

		report, err := validator.Validate(ctx, marshal(t, doc))

		require.NoError(t, err)
		assert.False(t, report.Passed)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, models.KindValidationFailure, report.Issues[0].Kind)
		assert.Equal(t, -1, report.Issues[0].Index)
		assert.Contains(t, report.Issues[0].Message, "expected 50 records, found 49")
		assert.True(t, report.Structural())
	})

	t.Run("record that is not an object", func(t *testing.T) {
		doc := canonicalDocument(t)
		states(doc)[10] = "Hawaii"

		report, err := validator.Validate(ctx, marshal(t, doc))

		require.NoError(t, err)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, models.KindInvalidField, report.Issues[0].Kind)
		assert.Equal(t, 10, report.Issues[0].Index)
	})

	t.Run("metadata must be an object", func(t *testing.T) {
		doc := canonicalDocument(t)
		doc["metadata"] = "none"

		report, err := validator.Validate(ctx, marshal(t, doc))

		require.NoError(t, err)
		require.Len(t, report.Issues, 1)
		assert.Contains(t, report.Issues[0].Message, "metadata")
		assert.True(t, report.Structural())
	})
}

func TestValidate_MalformedInput(t *testing.T) {
	validator := schema.NewValidator(slog.Default())

	tests := []struct {
		name string
		data string
	}{
		{name: "syntax error", data: `{"states": [`},
		{name: "empty document", data: ``},
		{name: "scalar", data: `"capitals"`},
		{name: "object without states", data: `{"metadata": {}}`},
		{name: "states is not a list", data: `{"states": {"state": "Ohio"}}`},
		{name: "states is null", data: `{"states": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := validator.Validate(context.Background(), []byte(tt.data))

			require.Nil(t, report)
			require.ErrorIs(t, err, models.ErrMalformedInput)
		})
	}
}
