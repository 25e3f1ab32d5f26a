// Package extract converts uploaded document bytes into text chunks.
// Dispatch is by file extension; parsing failures wrap into
// ExtractionError so the transport layer can surface the cause as a
// client error.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"ragchat/internal/chunker"
)

// ErrUnsupportedFormat reports a file extension no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ExtractionError wraps the parser failure for a malformed document.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return "extraction failed: " + e.Cause.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// Extractor turns file bytes into chunks via the configured splitter.
type Extractor struct {
	splitter *chunker.Splitter
	logger   *slog.Logger
}

func New(chunkSize, chunkOverlap int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		splitter: chunker.New(chunkSize, chunkOverlap),
		logger:   logger,
	}
}

// Extract parses content according to the filename's extension and
// returns the chunked text. A PDF with no extractable text yields an
// empty slice and nil error; callers must check for zero chunks.
func (e *Extractor) Extract(filename string, content []byte) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = pdfText(content)
		if err != nil {
			return nil, &ExtractionError{Cause: err}
		}
		if strings.TrimSpace(text) == "" {
			e.logger.Warn("pdf contains no extractable text", "filename", filename)
			return nil, nil
		}
	case ".docx", ".doc":
		text, err = docxText(content)
		if err != nil {
			return nil, &ExtractionError{Cause: err}
		}
	case ".txt":
		text = txtText(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return e.splitter.Split(text), nil
}
