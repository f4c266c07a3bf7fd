package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventWindowWithYears(t *testing.T) {
	from, to := eventWindow(map[string]interface{}{
		"entity":     "Acme Corp",
		"start_year": 2019,
		"end_year":   2022,
	})

	assert.Equal(t, time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC), from)
	require.NotNil(t, to)
	assert.Equal(t, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC), *to)
}

func TestEventWindowOpenEnded(t *testing.T) {
	from, to := eventWindow(map[string]interface{}{"start_year": 2020})

	assert.Equal(t, 2020, from.Year())
	assert.Nil(t, to)
}

func TestEventWindowDefaultsToNow(t *testing.T) {
	before := time.Now().UTC()
	from, to := eventWindow(map[string]interface{}{"entity": "Python"})

	assert.False(t, from.Before(before))
	assert.Nil(t, to)
}

func TestYearFieldToleratesJSONNumbers(t *testing.T) {
	// JSONB round-trips numbers as float64
	y, ok := yearField(map[string]interface{}{"start_year": float64(2019)}, "start_year")
	require.True(t, ok)
	assert.Equal(t, 2019, y)

	_, ok = yearField(map[string]interface{}{}, "start_year")
	assert.False(t, ok)

	_, ok = yearField(map[string]interface{}{"start_year": "2019"}, "start_year")
	assert.False(t, ok)
}

func TestEventMetadataDropsModeledFields(t *testing.T) {
	metadata := eventMetadata(map[string]interface{}{
		"entity":     "Acme Corp",
		"start_year": 2019,
		"end_year":   2022,
		"role":       "backend engineer",
	})

	assert.Equal(t, map[string]interface{}{"role": "backend engineer"}, metadata)
}
