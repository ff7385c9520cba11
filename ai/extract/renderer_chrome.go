package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer loads pages in a headless Chrome so client-side content is
// present before the DOM is read.
type ChromeRenderer struct {
	settle    time.Duration
	allocOpts []chromedp.ExecAllocatorOption
}

// NewChromeRenderer creates a renderer that waits settle after navigation
// before reading the DOM.
func NewChromeRenderer(settle time.Duration, execPath string) *ChromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.WindowSize(1280, 1024),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return &ChromeRenderer{
		settle:    settle,
		allocOpts: opts,
	}
}

// Render starts a fresh browser, navigates to url and returns the outer HTML
// of the document element.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var markup string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chrome render %s: %w", url, err)
	}
	return markup, nil
}
