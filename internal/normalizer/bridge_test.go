package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplychain/internal/models"
)

func TestResolveBridges_Dedup(t *testing.T) {
	records := []models.RawRecord{{"genre": "Action, Action, Comedy, action"}}

	dim, err := BuildDimension(SpaceBookCategories, records, BookCategoryLabels, BuildOptions{})
	require.NoError(t, err)

	bridges, err := ResolveBridges(records[0], "BK_000001", BookCategoryLabels, dim.Labels)
	require.NoError(t, err)
	require.Len(t, bridges, 2)
	assert.Equal(t, "ACT", bridges[0].Code)
	assert.Equal(t, "CMD", bridges[1].Code)
	assert.Equal(t, "BK_000001", bridges[1].FactKey)
}

func TestResolveBridges_EmptyField(t *testing.T) {
	dim, err := BuildDimension(SpacePerformers, nil, PerformerLabels, BuildOptions{})
	require.NoError(t, err)

	for _, rec := range []models.RawRecord{{}, {"actors": ""}, {"actors": "N/A"}, {"actors": []any{}}, {"actors": false}} {
		bridges, err := ResolveBridges(rec, "MEDIA_000001", PerformerLabels, dim.Labels)
		require.NoError(t, err)
		assert.Empty(t, bridges)
	}
}

func TestResolveBridges_LabelMapMiss(t *testing.T) {
	dim, err := BuildDimension(SpacePerformers, []models.RawRecord{{"actors": "Meg Ryan"}}, PerformerLabels, BuildOptions{})
	require.NoError(t, err)

	_, err = ResolveBridges(models.RawRecord{"actors": "Meg Ryan, Tom Hanks"}, "MEDIA_000002", PerformerLabels, dim.Labels)
	assert.ErrorIs(t, err, ErrLabelMapMiss)
	assert.True(t, IsFatal(err))
}
