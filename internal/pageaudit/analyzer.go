package pageaudit

import (
	"context"
	"log/slog"
	"time"
)

// Analyzer renders and extracts pages.
type Analyzer struct {
	renderer Renderer
}

// NewAnalyzer creates an Analyzer on top of r.
func NewAnalyzer(r Renderer) *Analyzer {
	return &Analyzer{renderer: r}
}

// Analyze renders url and extracts its report. Links and keyword-in-URL are
// evaluated against the final URL after redirects.
func (a *Analyzer) Analyze(ctx context.Context, url, keyword string) (*Report, error) {
	start := time.Now()
	page, err := a.renderer.Render(ctx, url)
	if err != nil {
		return nil, err
	}
	if page.URL == "" {
		page.URL = url
	}

	report, err := Extract(page.HTML, page.URL, keyword)
	if err != nil {
		return nil, err
	}
	slog.Info("page analyzed", "url", url, "final_url", page.URL, "words", report.WordCount, "duration", time.Since(start))
	return report, nil
}
