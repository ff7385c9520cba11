package extract

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrNoText is wrapped when a source yields no readable text.
var ErrNoText = errors.New("no readable text")

const pdfSource = "pdf"

type extractor struct {
	renderer PageRenderer
	timeout  time.Duration
}

// NewExtractor creates an Extractor. timeout bounds a single page render,
// including any settle interval the renderer applies.
func NewExtractor(renderer PageRenderer, timeout time.Duration) Extractor {
	if timeout <= 0 {
		timeout = 70 * time.Second
	}
	return &extractor{
		renderer: renderer,
		timeout:  timeout,
	}
}

func (e *extractor) ExtractFromURL(ctx context.Context, rawURL string) (*ExtractedContent, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, &ExtractionError{Source: rawURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	markup, err := e.renderer.Render(ctx, rawURL)
	if err != nil {
		slog.Warn("extract: page render failed", "url", rawURL, "error", err)
		return nil, &ExtractionError{Source: rawURL, Err: err}
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, &ExtractionError{Source: rawURL, Err: err}
	}

	text, kind := selectContent(doc)
	if text == "" {
		return nil, &ExtractionError{Source: rawURL, Err: ErrNoText}
	}

	slog.Debug("extract: page extracted",
		"url", rawURL,
		"kind", kind,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &ExtractedContent{Text: text, Kind: kind}, nil
}

func (e *extractor) ExtractFromPDF(_ context.Context, data []byte) (*ExtractedContent, error) {
	if len(data) == 0 {
		return nil, &ExtractionError{Source: pdfSource, Err: errors.New("empty file")}
	}

	text, err := pdfText(data)
	if err != nil {
		slog.Warn("extract: pdf extraction failed", "size", len(data), "error", err)
		return nil, &ExtractionError{Source: pdfSource, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ExtractionError{Source: pdfSource, Err: ErrNoText}
	}
	return &ExtractedContent{Text: text, Kind: SourcePDFDocument}, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("url must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}
