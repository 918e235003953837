package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEpochMillis(t *testing.T) {
	// A millisecond epoch observed in production data.
	got := FromEpochMillis(1758464374756)
	assert.Equal(t, "2025-09-21T14:19:34.756Z", got)
	assert.True(t, IsISO(got))
}

func TestIsISO(t *testing.T) {
	assert.True(t, IsISO("2025-09-21T14:19:34.756Z"))
	assert.True(t, IsISO("2025-09-21T14:19:34Z"))

	assert.False(t, IsISO("1758464374756"))
	assert.False(t, IsISO("2025-09-21T14:19:34+00:00"))
	assert.False(t, IsISO("2025-09-21 14:19:34"))
	assert.False(t, IsISO(""))
}

func TestNormalizeTimestamp_EpochRoundTrip(t *testing.T) {
	// Epoch integer converts once, then re-normalizing is a no-op.
	got, changed, err := NormalizeTimestamp(int64(1758464374756))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "2025-09-21T14:19:34.756Z", got)

	again, changed, err := NormalizeTimestamp(got)
	require.NoError(t, err)
	assert.False(t, changed, "normalizing already-correct data must be a no-op")
	assert.Equal(t, got, again)
}

func TestNormalizeTimestamp_NumericString(t *testing.T) {
	got, changed, err := NormalizeTimestamp("1758464374756")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "2025-09-21T14:19:34.756Z", got)
}

func TestNormalizeTimestamp_OffsetSuffix(t *testing.T) {
	got, changed, err := NormalizeTimestamp("2025-09-21T14:19:34.756+00:00")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "2025-09-21T14:19:34.756Z", got)
}

func TestNormalizeTimestamp_Nil(t *testing.T) {
	got, changed, err := NormalizeTimestamp(nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "", got)
}

func TestNormalizeTimestamp_Garbage(t *testing.T) {
	_, _, err := NormalizeTimestamp("yesterday")
	assert.Error(t, err)

	_, _, err = NormalizeTimestamp([]string{"nope"})
	assert.Error(t, err)
}

func TestNowISO(t *testing.T) {
	now := NowISO()
	assert.True(t, IsISO(now), "NowISO must produce the canonical format, got %s", now)

	parsed, err := time.Parse(time.RFC3339, now)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}
