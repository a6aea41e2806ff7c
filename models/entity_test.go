package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_RoundTrip(t *testing.T) {
	kind, id, ok := SplitCacheKey(CacheKey(KindReward, "gift:large"))
	require.True(t, ok)
	assert.Equal(t, KindReward, kind)
	assert.Equal(t, "gift:large", id)

	_, _, ok = SplitCacheKey("spaceship:1")
	assert.False(t, ok)
	_, _, ok = SplitCacheKey("poi")
	assert.False(t, ok)
}

func TestDecodeEntity(t *testing.T) {
	e, err := DecodeEntity(KindLoyalty, []byte(`{"id":"u1","version":3,"points":120}`))
	require.NoError(t, err)

	balance, ok := e.(*LoyaltyBalance)
	require.True(t, ok)
	assert.Equal(t, int64(120), balance.Points)
	assert.Equal(t, int64(3), balance.VersionValue())

	_, err = DecodeEntity("spaceship", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownEntityKind)

	_, err = DecodeEntity(KindPOI, []byte(`[`))
	assert.Error(t, err)
}

func TestWatermarks_NeverMoveBackwards(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	var w Watermarks
	w.Set(KindReward, late)
	w.Set(KindReward, early)
	w.Set("spaceship", late)

	assert.True(t, w.Get(KindReward).Equal(late))
	assert.True(t, w.Rewards.Equal(late))
	assert.True(t, w.Get(KindPOI).IsZero())
	assert.True(t, w.Get("spaceship").IsZero())
}

func TestLocalizedText_Resolve(t *testing.T) {
	text := LocalizedText{"en": "Coffee", "de": "Kaffee", "fr": "Café"}

	assert.Equal(t, "Kaffee", text.Resolve("de"))
	assert.Equal(t, "Kaffee", text.Resolve("de-AT"))
	assert.Equal(t, "Coffee", text.Resolve("ja"))
	assert.Equal(t, "", LocalizedText{}.Resolve("en"))
	assert.Equal(t, "Kahvi", LocalizedText{"fi": "Kahvi", "sv": "Kaffe"}.Resolve("ja"))
}

func TestAppBuildInfo_String(t *testing.T) {
	assert.Equal(t, "v1.0.0 (abc123, 2026-01-01)", NewAppBuildInfo("v1.0.0", "2026-01-01", "abc123").String())
	assert.Equal(t, "N/A (N/A, N/A)", AppBuildInfo{}.String())
}
