package reference_test

import (
	"testing"

	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/UnknownOlympus/capitals/internal/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapitals(t *testing.T) {
	list, err := reference.Capitals()
	require.NoError(t, err)

	assert.Equal(t, models.ExpectedRecordCount, list.Len())

	ca, ok := list.ByAbbr("CA")
	require.True(t, ok)
	assert.Equal(t, "California", ca.State)
	assert.Equal(t, "Sacramento", ca.Capital)
	assert.InEpsilon(t, 38.576668, ca.Latitude, 0.0001)

	ak, ok := list.ByState("Alaska")
	require.True(t, ok)
	assert.Equal(t, "Juneau", ak.Capital)
}

func TestParse_DuplicateAbbreviation(t *testing.T) {
	doc := []byte(`states:
  - {state: Texas, abbr: TX, capital: Austin, lat: 30.27, lon: -97.74}
  - {state: Texas, abbr: TX, capital: Austin, lat: 30.27, lon: -97.74}
`)

	_, err := reference.Parse(doc)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate abbreviation")
}

func TestParse_UnknownField(t *testing.T) {
	_, err := reference.Parse([]byte("states:\n  - {state: Texas, governor: nobody}\n"))

	require.Error(t, err)
}

func TestCanonicalDataset(t *testing.T) {
	ds, err := reference.CanonicalDataset()
	require.NoError(t, err)
	require.Len(t, ds.States, models.ExpectedRecordCount)

	list := reference.MustCapitals()
	for _, rec := range ds.States {
		ref, ok := list.ByAbbr(rec.StateAbbr)
		require.True(t, ok, rec.StateAbbr)
		assert.Equal(t, ref.State, rec.State)
		assert.Equal(t, ref.Capital, rec.Capital)
		assert.Len(t, rec.ZipCode5, 5)
	}

	assert.Equal(t, "Alabama", ds.States[0].State)
	assert.Equal(t, "1315 10th Street", ds.States[4].AddressLine1)
}
