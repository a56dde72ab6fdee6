// Package preview turns a link into a locally stored thumbnail and a short
// summary. Strategies are interchangeable behind Resolver and are selected by
// configuration.
package preview

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Strategy names accepted by New.
const (
	StrategyOpenGraph  = "opengraph"
	StrategyScreenshot = "screenshot"
	StrategyNone       = "none"
)

// MaxURLLength matches the url column width of the post table.
const MaxURLLength = 2048

// Preview is the result of resolving a link.
type Preview struct {
	// PicturePath is a bare filename inside the asset directory.
	PicturePath string
	Summary     string
}

// Resolver produces a Preview for a URL. Implementations make a single
// attempt and never retry.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*Preview, error)
	Name() string
}

// Checker is implemented by resolvers that depend on something outside the
// process, such as a browser binary.
type Checker interface {
	Check() error
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if len(raw) > MaxURLLength {
		return nil, fmt.Errorf("%w: longer than %d bytes", ErrInvalidURL, MaxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// disabled is the "none" strategy: every post must bring its own picture.
type disabled struct{}

func (disabled) Name() string { return StrategyNone }

func (disabled) Resolve(ctx context.Context, rawURL string) (*Preview, error) {
	return nil, ErrResolverDisabled
}
