// Package markdown turns local markdown files into document payloads.
package markdown

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"path"
	"strings"
	"time"

	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// Config controls how documents are prepared.
type Config struct {
	// Format is the payload format sent to the store. Markdown bodies are
	// sent verbatim; html bodies are rendered with the parser.
	Format interfaces.Format
	Parser interfaces.ParseOptions
}

// Prepared is a document ready to be published.
type Prepared struct {
	Path     string
	Title    string
	Content  string
	Format   interfaces.Format
	Draft    bool
	Checksum []byte
	Document *interfaces.Document
}

// Service prepares local markdown for publication.
type Service struct {
	cfg    Config
	parser interfaces.MarkdownParser
	logger interfaces.Logger
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithParser overrides the goldmark parser.
func WithParser(parser interfaces.MarkdownParser) ServiceOption {
	return func(s *Service) {
		if parser != nil {
			s.parser = parser
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a Service. The format defaults to markdown.
func NewService(cfg Config, opts ...ServiceOption) *Service {
	if cfg.Format == "" {
		cfg.Format = interfaces.FormatMarkdown
	}
	s := &Service{
		cfg:    cfg,
		parser: NewGoldmarkParser(cfg.Parser),
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Format returns the payload format produced by Prepare.
func (s *Service) Format() interfaces.Format {
	return s.cfg.Format
}

// Prepare parses source and produces the payload for relPath.
func (s *Service) Prepare(ctx context.Context, relPath string, source []byte, modified time.Time) (*Prepared, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := BuildDocument(relPath, source, modified)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(source)
	doc.Checksum = sum[:]

	content := string(doc.Body)
	if s.cfg.Format == interfaces.FormatHTML {
		rendered, err := s.parser.ParseWithOptions(doc.Body, s.cfg.Parser)
		if err != nil {
			return nil, err
		}
		doc.BodyHTML = rendered
		content = string(rendered)
	}

	title := DocumentTitle(doc)
	s.logger.Debug("markdown.prepare.completed", "local_path", relPath, "title", title, "format", s.cfg.Format)

	return &Prepared{
		Path:     relPath,
		Title:    title,
		Content:  content,
		Format:   s.cfg.Format,
		Draft:    doc.FrontMatter.Draft,
		Checksum: doc.Checksum,
		Document: doc,
	}, nil
}

// DocumentTitle picks the front matter title, then the first level one
// heading, then the file name without its extension.
func DocumentTitle(doc *interfaces.Document) string {
	if doc == nil {
		return ""
	}
	if title := strings.TrimSpace(doc.FrontMatter.Title); title != "" {
		return title
	}

	scanner := bufio.NewScanner(bytes.NewReader(doc.Body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "# ") {
			if heading := strings.TrimSpace(strings.TrimPrefix(line, "# ")); heading != "" {
				return heading
			}
		}
	}

	base := path.Base(doc.FilePath)
	return strings.TrimSuffix(base, path.Ext(base))
}
