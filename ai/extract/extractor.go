// Package extract turns a web page or an uploaded PDF into plain text.
package extract

import (
	"context"
	"fmt"
)

// SourceKind tells where extracted text came from.
type SourceKind string

const (
	// SourceArticleBody is text from a recognized article container.
	SourceArticleBody SourceKind = "article_body"
	// SourceFullPage is the visible text of the whole document.
	SourceFullPage SourceKind = "full_page"
	// SourcePDFDocument is text extracted from a PDF.
	SourcePDFDocument SourceKind = "pdf_document"
)

// ExtractedContent is the text handed to the summarizer.
type ExtractedContent struct {
	Text string
	Kind SourceKind
}

// Extractor fetches and cleans source material.
type Extractor interface {
	// ExtractFromURL renders the page and returns the article text, or the
	// full page text when no article container is found.
	ExtractFromURL(ctx context.Context, url string) (*ExtractedContent, error)

	// ExtractFromPDF returns the text of an in-memory PDF file.
	ExtractFromPDF(ctx context.Context, data []byte) (*ExtractedContent, error)
}

// PageRenderer returns the serialized DOM of a page after it has loaded.
type PageRenderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// ExtractionError reports a page or document that could not be turned into text.
type ExtractionError struct {
	Source string // URL or "pdf"
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
