package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	apperrors "storepivot/internal/errors"
)

// ChromeOptions configures the headless browser behind ChromeSurface.
type ChromeOptions struct {
	// ExecPath overrides the browser binary; empty lets chromedp search.
	ExecPath      string
	Headless      bool
	Timeout       time.Duration
	ViewportWidth int
}

// DefaultChromeOptions returns headless capture with a 60s budget.
func DefaultChromeOptions() ChromeOptions {
	return ChromeOptions{Headless: true, Timeout: 60 * time.Second, ViewportWidth: 1400}
}

// ChromeSurface rasterizes an HTML document with headless Chrome. Each
// Capture starts its own browser and screenshots the element with id TableID.
type ChromeSurface struct {
	html   []byte
	opts   ChromeOptions
	logger *slog.Logger
}

// NewChromeSurface returns a surface for the document html, usually the
// output of HTMLTable.
func NewChromeSurface(html []byte, opts ChromeOptions, logger *slog.Logger) *ChromeSurface {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = DefaultChromeOptions().ViewportWidth
	}
	return &ChromeSurface{html: html, opts: opts, logger: logger}
}

// Document returns the HTML the surface loads.
func (s *ChromeSurface) Document() []byte { return s.html }

// Capture implements exporter.Surface.
func (s *ChromeSurface) Capture(ctx context.Context) (image.Image, error) {
	if len(s.html) == 0 {
		return nil, apperrors.NewRenderError("nothing to capture", nil)
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	allocOpts = append(allocOpts, chromedp.Flag("headless", s.opts.Headless))
	if s.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(s.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var shot []byte
	err := chromedp.Run(browserCtx,
		s.timed("Viewport", chromedp.EmulateViewport(int64(s.opts.ViewportWidth), 800)),
		s.timed("Navigate", chromedp.Navigate("about:blank")),
		s.timed("LoadDocument", chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(s.html)).Do(ctx)
		})),
		chromedp.WaitVisible("#"+TableID, chromedp.ByQuery),
		s.timed("Screenshot", chromedp.Screenshot("#"+TableID, &shot, chromedp.ByQuery)),
	)
	if err != nil {
		return nil, apperrors.NewRenderError("chrome capture failed", err)
	}

	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, apperrors.NewRenderError("failed to decode screenshot", err)
	}
	s.logger.DebugContext(ctx, "Captured pivot table",
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()))
	return img, nil
}

func (s *ChromeSurface) timed(name string, act chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		start := time.Now()
		err := act.Do(ctx)
		s.logger.DebugContext(ctx, "Chrome action finished",
			slog.String("action", name),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("ok", err == nil))
		return err
	})
}

// FindChrome returns a usable browser binary. A non-empty execPath is only
// checked; otherwise the usual Chrome and Chromium names are looked up on
// PATH.
func FindChrome(execPath string) (string, bool) {
	candidates := []string{execPath}
	if execPath == "" {
		candidates = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"}
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, true
		}
	}
	return "", false
}

// ImageSurface is a surface over an already rendered image.
type ImageSurface struct {
	Image image.Image
}

// Capture implements exporter.Surface.
func (s ImageSurface) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Image == nil {
		return nil, apperrors.NewRenderError("image surface is empty", nil)
	}
	return s.Image, nil
}
