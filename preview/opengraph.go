package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/gif" // Register GIF decoder
	_ "image/png" // Register PNG decoder
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
	"golang.org/x/net/html"
)

const (
	maxPageBytes     = 2 << 20
	thumbnailQuality = 85
)

// OpenGraphOptions configures the metadata-scrape strategy.
type OpenGraphOptions struct {
	Timeout       time.Duration
	UserAgent     string
	MaxImageBytes int64
	// ThumbWidth bounds the stored thumbnail; smaller images keep their size.
	ThumbWidth int
	Client     *http.Client
}

// Metadata is what a page advertises about itself.
type Metadata struct {
	ImageURL string `json:"imageUrl"`
	Summary  string `json:"summary"`
}

// OpenGraph resolves a link by reading its og:image and storing a JPEG
// thumbnail of that image.
type OpenGraph struct {
	assets *AssetStore
	cache  *MetadataCache
	client *http.Client
	opts   OpenGraphOptions
}

// NewOpenGraph builds the strategy. cache may be nil.
func NewOpenGraph(assets *AssetStore, cache *MetadataCache, opts OpenGraphOptions) *OpenGraph {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "LinkfeedBot/1.0"
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 10 << 20
	}
	if opts.ThumbWidth <= 0 {
		opts.ThumbWidth = 800
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &OpenGraph{assets: assets, cache: cache, client: client, opts: opts}
}

func (o *OpenGraph) Name() string { return StrategyOpenGraph }

// Resolve fetches the page, downloads its preview image and stores a thumbnail.
func (o *OpenGraph) Resolve(ctx context.Context, rawURL string) (*Preview, error) {
	pageURL, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	meta, ok := o.cache.Get(ctx, pageURL.String())
	if !ok {
		meta, err = o.scrape(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		o.cache.Set(ctx, pageURL.String(), meta)
	}

	data, err := o.download(ctx, meta.ImageURL)
	if err != nil {
		return nil, err
	}
	thumb, err := o.thumbnail(data)
	if err != nil {
		return nil, err
	}

	imgPath := meta.ImageURL
	if u, err := url.Parse(meta.ImageURL); err == nil {
		imgPath = u.Path
	}
	name, err := o.assets.Save(UniqueName(path.Base(imgPath), ".jpg"), bytes.NewReader(thumb))
	if err != nil {
		return nil, err
	}
	return &Preview{PicturePath: name, Summary: meta.Summary}, nil
}

func (o *OpenGraph) scrape(ctx context.Context, pageURL *url.URL) (Metadata, error) {
	resp, err := o.get(ctx, pageURL.String())
	if err != nil {
		return Metadata{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: read page: %v", ErrDownloadFailed, err)
	}

	og := parseOpenGraph(body)
	if og.image == "" {
		return Metadata{}, fmt.Errorf("%w: %s has no og:image", ErrNoPreviewMetadata, pageURL)
	}
	imgURL, err := pageURL.Parse(og.image)
	if err != nil || (imgURL.Scheme != "http" && imgURL.Scheme != "https") {
		return Metadata{}, fmt.Errorf("%w: bad og:image %q", ErrNoPreviewMetadata, og.image)
	}
	return Metadata{ImageURL: imgURL.String(), Summary: og.summary()}, nil
}

func (o *OpenGraph) download(ctx context.Context, imageURL string) ([]byte, error) {
	resp, err := o.get(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("%w: %s is %q, not an image", ErrDownloadFailed, imageURL, mediaType)
	}
	if resp.ContentLength > o.opts.MaxImageBytes {
		return nil, fmt.Errorf("%w: image is %d bytes, limit %d", ErrDownloadFailed, resp.ContentLength, o.opts.MaxImageBytes)
	}

	// Read one extra byte to detect bodies larger than the limit.
	data, err := io.ReadAll(io.LimitReader(resp.Body, o.opts.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", ErrDownloadFailed, err)
	}
	if int64(len(data)) > o.opts.MaxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrDownloadFailed, o.opts.MaxImageBytes)
	}
	return data, nil
}

func (o *OpenGraph) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", o.opts.UserAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeoutError(err) {
			return nil, fmt.Errorf("%w: %s timed out", ErrDownloadFailed, target)
		}
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned status %d", ErrDownloadFailed, target, resp.StatusCode)
	}
	return resp, nil
}

func (o *OpenGraph) thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrDownloadFailed, err)
	}
	if img.Bounds().Dx() > o.opts.ThumbWidth {
		img = imaging.Resize(img, o.opts.ThumbWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("%w: encode thumbnail: %v", ErrDownloadFailed, err)
	}
	return buf.Bytes(), nil
}

type openGraphData struct {
	image           string
	description     string
	metaDescription string
	title           string
}

func (d openGraphData) summary() string {
	for _, s := range []string{d.description, d.metaDescription, d.title} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// parseOpenGraph extracts the preview image and text from an HTML document.
// og:image wins over twitter:image; the first occurrence of each tag wins.
func parseOpenGraph(body []byte) openGraphData {
	var og openGraphData
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return og
	}

	var twitterImage string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				property := strings.ToLower(getAttr(n, "property"))
				name := strings.ToLower(getAttr(n, "name"))
				content := strings.TrimSpace(getAttr(n, "content"))
				switch {
				case property == "og:image" || property == "og:image:url":
					if og.image == "" {
						og.image = content
					}
				case property == "og:description":
					if og.description == "" {
						og.description = content
					}
				case name == "twitter:image" || property == "twitter:image":
					if twitterImage == "" {
						twitterImage = content
					}
				case name == "description":
					if og.metaDescription == "" {
						og.metaDescription = content
					}
				}
			case "title":
				if og.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					og.title = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	if og.image == "" {
		og.image = twitterImage
	}
	return og
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
