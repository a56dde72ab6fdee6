package preview

import (
	"fmt"
	"time"
)

// Options selects and configures a strategy.
type Options struct {
	Strategy      string
	Timeout       time.Duration
	UserAgent     string
	MaxImageBytes int64
	ThumbWidth    int
	ChromePath    string
	ScreenWidth   int
	ScreenHeight  int
}

// New builds the configured resolver and verifies it can run on this host.
// An unknown or unavailable strategy is a configuration error.
func New(assets *AssetStore, cache *MetadataCache, opts Options) (Resolver, error) {
	var r Resolver
	switch opts.Strategy {
	case StrategyOpenGraph, "":
		r = NewOpenGraph(assets, cache, OpenGraphOptions{
			Timeout:       opts.Timeout,
			UserAgent:     opts.UserAgent,
			MaxImageBytes: opts.MaxImageBytes,
			ThumbWidth:    opts.ThumbWidth,
		})
	case StrategyScreenshot:
		r = NewScreenshot(assets, ScreenshotOptions{
			ChromePath: opts.ChromePath,
			Timeout:    opts.Timeout,
			Width:      opts.ScreenWidth,
			Height:     opts.ScreenHeight,
			UserAgent:  opts.UserAgent,
		})
	case StrategyNone:
		r = disabled{}
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrStrategyUnavailable, opts.Strategy)
	}

	if c, ok := r.(Checker); ok {
		if err := c.Check(); err != nil {
			return nil, err
		}
	}
	return r, nil
}
