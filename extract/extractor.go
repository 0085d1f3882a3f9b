package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/mimesis/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

const defaultMaxFileSize = 64 << 20

// Format identifies how a document is read.
type Format string

const (
	FormatUnknown Format = ""
	FormatText    Format = "text"
	FormatPDF     Format = "pdf"
	FormatHTML    Format = "html"
)

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md", ".markdown":
		return FormatText
	case ".pdf":
		return FormatPDF
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatUnknown
}

// Document is a file to extract. An empty Format is detected from Path.
type Document struct {
	Path   string
	Format Format
}

// Source is the text recovered from one document or URL.
type Source struct {
	ID     core.ID
	Origin string
	Format Format
	Text   string
}

// Skip records a document that produced no source.
type Skip struct {
	Origin string
	Reason error
}

// Result holds the usable sources and the skipped inputs of one extraction.
type Result struct {
	Sources []Source
	Skipped []Skip
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithFetcher sets the Fetcher used for URL sources.
func WithFetcher(f Fetcher) Option {
	return func(e *Extractor) error {
		e.fetcher = f
		return nil
	}
}

// WithMaxFileSize caps the size of a single file in bytes.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) error {
		if n <= 0 {
			return fmt.Errorf("max file size must be positive, got %d", n)
		}
		e.maxFileSize = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		e.logger = logger
		return nil
	}
}

// Extractor reads documents and URLs into Sources.
type Extractor struct {
	fetcher     Fetcher
	maxFileSize int64
	logger      *slog.Logger
}

// New creates an Extractor.
func New(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		maxFileSize: defaultMaxFileSize,
		logger:      slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Extract reads docs and then urls. Inputs that fail are recorded in
// Result.Skipped and do not stop the run. If nothing usable remains the
// error wraps core.ErrNoUsableContent and the Result still lists the skips.
func (e *Extractor) Extract(ctx context.Context, docs []Document, urls []string) (*Result, error) {
	if len(urls) > 0 && e.fetcher == nil {
		return nil, ErrFetcherRequired
	}

	result := &Result{}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := e.extractFile(ctx, doc)
		if err != nil {
			e.skip(result, doc.Path, err)
			continue
		}
		result.Sources = append(result.Sources, *src)
	}

	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := e.extractURL(ctx, url)
		if err != nil {
			e.skip(result, url, err)
			continue
		}
		result.Sources = append(result.Sources, *src)
	}

	if len(result.Sources) == 0 {
		return result, fmt.Errorf("%w: %d inputs, %d skipped", core.ErrNoUsableContent, len(docs)+len(urls), len(result.Skipped))
	}

	e.logger.Debug("extraction complete", "sources", len(result.Sources), "skipped", len(result.Skipped))
	return result, nil
}

func (e *Extractor) skip(result *Result, origin string, reason error) {
	if errors.Is(reason, core.ErrUnsupportedFormat) {
		e.logger.Warn("skipping unsupported document", "origin", origin)
	} else {
		e.logger.Warn("skipping document", "origin", origin, "err", reason)
	}
	result.Skipped = append(result.Skipped, Skip{Origin: origin, Reason: reason})
}

func (e *Extractor) extractFile(ctx context.Context, doc Document) (*Source, error) {
	format := doc.Format
	if format == FormatUnknown {
		format = DetectFormat(doc.Path)
	}
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(doc.Path))
	}

	f, err := os.Open(doc.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > e.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	var loader documentloaders.Loader
	switch format {
	case FormatText:
		loader = documentloaders.NewText(f)
	case FormatPDF:
		loader = documentloaders.NewPDF(f, info.Size())
	case FormatHTML:
		loader = documentloaders.NewHTML(f)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, format)
	}

	pages, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", doc.Path, err)
	}

	return newSource(doc.Path, format, joinPages(pages))
}

func (e *Extractor) extractURL(ctx context.Context, url string) (*Source, error) {
	text, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return newSource(url, FormatHTML, text)
}

func newSource(origin string, format Format, raw string) (*Source, error) {
	text := Normalize(raw)
	if text == "" {
		return nil, ErrEmptyDocument
	}
	return &Source{
		ID:     core.IDFromContent(origin),
		Origin: origin,
		Format: format,
		Text:   text,
	}, nil
}

func joinPages(pages []schema.Document) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.PageContent)
	}
	return strings.Join(parts, "\n\n")
}

// Normalize converts line endings to LF, drops NUL bytes and trims
// surrounding whitespace.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}
