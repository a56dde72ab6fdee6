package preview

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/linkfeed/utils"
)

func TestNewSelectsStrategy(t *testing.T) {
	assets := newTestAssets(t)

	r, err := New(assets, nil, Options{Strategy: StrategyOpenGraph})
	require.NoError(t, err)
	assert.Equal(t, StrategyOpenGraph, r.Name())

	r, err = New(assets, nil, Options{Strategy: StrategyNone})
	require.NoError(t, err)
	assert.Equal(t, StrategyNone, r.Name())
	_, err = r.Resolve(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, ErrResolverDisabled)

	_, err = New(assets, nil, Options{Strategy: "telepathy"})
	assert.ErrorIs(t, err, ErrStrategyUnavailable)
}

func TestNewScreenshotWithoutBrowserFails(t *testing.T) {
	assets := newTestAssets(t)
	_, err := New(assets, nil, Options{
		Strategy:   StrategyScreenshot,
		ChromePath: filepath.Join(t.TempDir(), "no-such-chrome"),
	})
	assert.ErrorIs(t, err, ErrStrategyUnavailable)
}

func TestScreenshotRejectsInvalidURL(t *testing.T) {
	s := NewScreenshot(newTestAssets(t), ScreenshotOptions{})
	_, err := s.Resolve(context.Background(), "javascript:alert(1)")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestMetadataCache(t *testing.T) {
	ctx := context.Background()

	var nilCache *MetadataCache
	nilCache.Set(ctx, "https://example.com", Metadata{ImageURL: "x"})
	_, ok := nilCache.Get(ctx, "https://example.com")
	assert.False(t, ok)
	assert.Nil(t, NewMetadataCache(nil, 0))

	kv := &mapKV{m: map[string][]byte{}}
	c := NewMetadataCache(kv, 0)
	c.Set(ctx, "https://example.com/a", Metadata{ImageURL: "https://example.com/a.png", Summary: "A"})
	got, ok := c.Get(ctx, "https://example.com/a")
	require.True(t, ok)
	assert.Equal(t, "A", got.Summary)
	for key := range kv.m {
		assert.Regexp(t, `^preview:meta:[0-9a-f]{64}$`, key)
	}

	_, ok = c.Get(ctx, "https://example.com/b")
	assert.False(t, ok)
}

func TestMetadataCacheOverAppCache(t *testing.T) {
	ctx := context.Background()
	c := NewMetadataCache(utils.NewCache(nil), time.Hour)

	c.Set(ctx, "https://example.com/a", Metadata{ImageURL: "https://example.com/a.png", Summary: "A & B"})
	got, ok := c.Get(ctx, "https://example.com/a")
	require.True(t, ok)
	assert.Equal(t, Metadata{ImageURL: "https://example.com/a.png", Summary: "A & B"}, got)
}
