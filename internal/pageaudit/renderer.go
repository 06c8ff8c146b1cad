// Package pageaudit renders a page in headless Chrome and extracts its
// on-page SEO signals.
package pageaudit

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultTimeout bounds one page render.
const DefaultTimeout = 30 * time.Second

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Page is a rendered document.
type Page struct {
	URL  string // final URL after redirects
	HTML string
}

// Renderer loads a URL and returns the rendered DOM.
type Renderer interface {
	Render(ctx context.Context, url string) (*Page, error)
}

// ChromeRenderer renders pages with a fresh headless Chrome per call.
type ChromeRenderer struct {
	execPath string
	timeout  time.Duration
}

// NewChromeRenderer creates a renderer. An empty execPath lets chromedp find Chrome.
func NewChromeRenderer(execPath string, timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChromeRenderer{execPath: execPath, timeout: timeout}
}

// Render navigates to url, waits for the body and returns the outer HTML.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	page := &Page{}
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Location(&page.URL),
		chromedp.OuterHTML("html", &page.HTML),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	return page, nil
}
