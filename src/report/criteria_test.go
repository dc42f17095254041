package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BikeSharing/src/processor"
)

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("", " ")
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = ParseDateRange("2011-01-01", "2011/01/31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2011, 1, 31, 0, 0, 0, 0, time.UTC), r.End)

	r, err = ParseDateRange("2012-03-01", "")
	require.NoError(t, err)
	assert.Equal(t, 9999, r.End.Year())

	_, err = ParseDateRange("kemarin", "")
	assert.ErrorIs(t, err, ErrInvalidCriteria)
}

func TestParseCodes(t *testing.T) {
	codes, err := ParseCodes(processor.SeasonLabels, "", false)
	require.NoError(t, err)
	assert.Nil(t, codes)

	codes, err = ParseCodes(processor.SeasonLabels, "", true)
	require.NoError(t, err)
	assert.NotNil(t, codes)
	assert.Empty(t, codes)

	codes, err = ParseCodes(processor.SeasonLabels, "spring, 3", true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, codes)

	_, err = ParseCodes(processor.WeatherLabels, "Sunny", true)
	assert.ErrorIs(t, err, ErrInvalidCriteria)
}
