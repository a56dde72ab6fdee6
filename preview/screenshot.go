package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

var chromeCandidates = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
}

// ScreenshotOptions configures the headless browser strategy.
type ScreenshotOptions struct {
	// ChromePath overrides the browser lookup on $PATH.
	ChromePath string
	Timeout    time.Duration
	Width      int
	Height     int
	UserAgent  string
}

// Screenshot resolves a link by rendering it in a headless browser that is
// started for the call and torn down before Resolve returns.
type Screenshot struct {
	assets   *AssetStore
	opts     ScreenshotOptions
	execPath string
	now      func() time.Time
}

// NewScreenshot builds the strategy. Call Check before serving traffic.
func NewScreenshot(assets *AssetStore, opts ScreenshotOptions) *Screenshot {
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 800
	}
	return &Screenshot{assets: assets, opts: opts, now: time.Now}
}

func (s *Screenshot) Name() string { return StrategyScreenshot }

// Check locates the browser binary.
func (s *Screenshot) Check() error {
	if s.opts.ChromePath != "" {
		fi, err := os.Stat(s.opts.ChromePath)
		if err != nil || fi.IsDir() {
			return fmt.Errorf("%w: chrome not found at %s", ErrStrategyUnavailable, s.opts.ChromePath)
		}
		s.execPath = s.opts.ChromePath
		return nil
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			s.execPath = p
			return nil
		}
	}
	return fmt.Errorf("%w: no chrome or chromium binary on PATH (tried %s)",
		ErrStrategyUnavailable, strings.Join(chromeCandidates, ", "))
}

// Resolve navigates to the URL and stores a PNG of the viewport.
func (s *Screenshot) Resolve(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if s.execPath == "" {
		if err := s.Check(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
		}
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(s.execPath),
		chromedp.WindowSize(s.opts.Width, s.opts.Height),
		chromedp.Flag("hide-scrollbars", true),
	)
	if s.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(s.opts.UserAgent))
	}

	runCtx, cancelRun := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancelRun()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(runCtx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var (
		title string
		shot  []byte
	)
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(u.String()),
		chromedp.Title(&title),
		chromedp.CaptureScreenshot(&shot),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrRenderTimeout, u, s.opts.Timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	if len(shot) == 0 {
		return nil, fmt.Errorf("%w: empty screenshot", ErrRenderFailed)
	}

	name := fmt.Sprintf("shot-%d-%s.png", s.now().UnixNano(), uuid.NewString())
	if _, err := s.assets.Save(name, bytes.NewReader(shot)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return &Preview{PicturePath: name, Summary: strings.TrimSpace(title)}, nil
}
