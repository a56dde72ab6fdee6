package preview

import "errors"

var (
	// ErrInvalidURL is returned when the link is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")

	// ErrNoPreviewMetadata is returned when the page has no preview image.
	ErrNoPreviewMetadata = errors.New("no preview metadata")

	// ErrDownloadFailed covers page or image fetch failures, non-image
	// content and undecodable image bytes.
	ErrDownloadFailed = errors.New("download failed")

	// ErrRenderTimeout is returned when a screenshot does not finish in time.
	ErrRenderTimeout = errors.New("render timeout")

	// ErrRenderFailed is returned for any other screenshot failure.
	ErrRenderFailed = errors.New("render failed")

	// ErrInvalidAssetName is returned for names that are not a bare filename.
	ErrInvalidAssetName = errors.New("invalid asset name")

	// ErrUnsupportedUpload is returned for uploads that are not an accepted image.
	ErrUnsupportedUpload = errors.New("unsupported upload")

	// ErrUploadTooLarge is returned when an upload exceeds the size limit.
	ErrUploadTooLarge = errors.New("upload too large")

	// ErrStrategyUnavailable is returned at startup when the configured
	// strategy cannot run on this host.
	ErrStrategyUnavailable = errors.New("preview strategy unavailable")

	// ErrResolverDisabled is returned by the "none" strategy.
	ErrResolverDisabled = errors.New("preview resolver disabled")

	// ErrPoolStopped is returned when a resolution is requested after Stop.
	ErrPoolStopped = errors.New("preview pool stopped")
)
