package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestAssets(t *testing.T) *AssetStore {
	t.Helper()
	assets, err := NewAssetStore(t.TempDir(), 1)
	require.NoError(t, err)
	return assets
}

func assetFiles(t *testing.T, a *AssetStore) []string {
	t.Helper()
	entries, err := os.ReadDir(a.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// mapKV is an in-memory KV for cache tests.
type mapKV struct{ m map[string][]byte }

func (k *mapKV) GetJSON(ctx context.Context, key string, v interface{}) bool {
	b, ok := k.m[key]
	return ok && json.Unmarshal(b, v) == nil
}

func (k *mapKV) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err == nil {
		k.m[key] = b
	}
}

func TestParseOpenGraph(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		wantImage   string
		wantSummary string
	}{
		{
			name:        "og tags",
			html:        `<html><head><title>T</title><meta property="og:image" content="https://x.test/a.png"><meta property="og:description" content="About A"></head></html>`,
			wantImage:   "https://x.test/a.png",
			wantSummary: "About A",
		},
		{
			name:        "twitter image and meta description",
			html:        `<html><head><meta name="twitter:image" content="/t.png"><meta name="description" content="Plain"></head></html>`,
			wantImage:   "/t.png",
			wantSummary: "Plain",
		},
		{
			name:        "og image wins over twitter",
			html:        `<meta name="twitter:image" content="/t.png"><meta property="og:image" content="/o.png">`,
			wantImage:   "/o.png",
			wantSummary: "",
		},
		{
			name:        "title fallback",
			html:        `<html><head><title> Page Title </title></head></html>`,
			wantImage:   "",
			wantSummary: "Page Title",
		},
		{
			name:        "first og image wins",
			html:        `<meta property="og:image" content="/1.png"><meta property="og:image" content="/2.png">`,
			wantImage:   "/1.png",
			wantSummary: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			og := parseOpenGraph([]byte(tt.html))
			assert.Equal(t, tt.wantImage, og.image)
			assert.Equal(t, tt.wantSummary, og.summary())
		})
	}
}

func TestOpenGraphResolve(t *testing.T) {
	pngBytes := testPNG(t, 1200, 600)
	var pageHits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta property="og:image" content="/a.png"><meta property="og:description" content="Example A"></head></html>`))
	})
	mux.HandleFunc("/a.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})
	mux.HandleFunc("/bare", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>No image</title></head></html>`))
	})
	mux.HandleFunc("/notimage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<meta property="og:image" content="/page.html">`))
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<meta property="og:image" content="/gone.png">`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()

	t.Run("stores a bounded jpeg thumbnail", func(t *testing.T) {
		assets := newTestAssets(t)
		og := NewOpenGraph(assets, nil, OpenGraphOptions{ThumbWidth: 400})

		p, err := og.Resolve(ctx, srv.URL+"/a")
		require.NoError(t, err)
		assert.Equal(t, "Example A", p.Summary)
		assert.True(t, strings.HasPrefix(p.PicturePath, "a-"), p.PicturePath)
		assert.True(t, strings.HasSuffix(p.PicturePath, ".jpg"), p.PicturePath)
		require.NoError(t, ValidateName(p.PicturePath))

		f, err := os.Open(filepath.Join(assets.Dir(), p.PicturePath))
		require.NoError(t, err)
		defer f.Close()
		cfg, format, err := image.DecodeConfig(f)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 400, cfg.Width)
		assert.Equal(t, 200, cfg.Height)
	})

	t.Run("same link twice gets distinct files", func(t *testing.T) {
		assets := newTestAssets(t)
		og := NewOpenGraph(assets, nil, OpenGraphOptions{})
		p1, err := og.Resolve(ctx, srv.URL+"/a")
		require.NoError(t, err)
		p2, err := og.Resolve(ctx, srv.URL+"/a")
		require.NoError(t, err)
		assert.NotEqual(t, p1.PicturePath, p2.PicturePath)
		assert.Len(t, assetFiles(t, assets), 2)
	})

	t.Run("metadata cache skips the page fetch", func(t *testing.T) {
		assets := newTestAssets(t)
		cache := NewMetadataCache(&mapKV{m: map[string][]byte{}}, time.Hour)
		og := NewOpenGraph(assets, cache, OpenGraphOptions{})

		before := pageHits.Load()
		_, err := og.Resolve(ctx, srv.URL+"/a")
		require.NoError(t, err)
		_, err = og.Resolve(ctx, srv.URL+"/a")
		require.NoError(t, err)
		assert.Equal(t, before+1, pageHits.Load())
		assert.Len(t, assetFiles(t, assets), 2)
	})

	t.Run("no og:image", func(t *testing.T) {
		assets := newTestAssets(t)
		_, err := NewOpenGraph(assets, nil, OpenGraphOptions{}).Resolve(ctx, srv.URL+"/bare")
		assert.ErrorIs(t, err, ErrNoPreviewMetadata)
		assert.Empty(t, assetFiles(t, assets))
	})

	t.Run("non-image content", func(t *testing.T) {
		assets := newTestAssets(t)
		_, err := NewOpenGraph(assets, nil, OpenGraphOptions{}).Resolve(ctx, srv.URL+"/notimage")
		assert.ErrorIs(t, err, ErrDownloadFailed)
		assert.Empty(t, assetFiles(t, assets))
	})

	t.Run("image 404", func(t *testing.T) {
		assets := newTestAssets(t)
		_, err := NewOpenGraph(assets, nil, OpenGraphOptions{}).Resolve(ctx, srv.URL+"/missing")
		assert.ErrorIs(t, err, ErrDownloadFailed)
	})

	t.Run("image over the size limit", func(t *testing.T) {
		assets := newTestAssets(t)
		_, err := NewOpenGraph(assets, nil, OpenGraphOptions{MaxImageBytes: 100}).Resolve(ctx, srv.URL+"/a")
		assert.ErrorIs(t, err, ErrDownloadFailed)
		assert.Empty(t, assetFiles(t, assets))
	})

	t.Run("invalid url", func(t *testing.T) {
		og := NewOpenGraph(newTestAssets(t), nil, OpenGraphOptions{})
		for _, raw := range []string{"", "not a url", "/relative", "ftp://example.com/x", "https://"} {
			_, err := og.Resolve(ctx, raw)
			assert.ErrorIs(t, err, ErrInvalidURL, raw)
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()
		_, err := NewOpenGraph(newTestAssets(t), nil, OpenGraphOptions{Timeout: time.Second}).Resolve(ctx, deadURL+"/x")
		assert.ErrorIs(t, err, ErrDownloadFailed)
	})
}
