package markdown

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// GoldmarkParser implements interfaces.MarkdownParser. The engine for the
// default options is built once; other option sets get a fresh engine per
// call.
type GoldmarkParser struct {
	defaults interfaces.ParseOptions
	engine   goldmark.Markdown
}

// NewGoldmarkParser constructs a parser. An empty extension list selects the
// markup the document store imports: tables, strikethrough, checklists and
// bare links.
func NewGoldmarkParser(defaults interfaces.ParseOptions) *GoldmarkParser {
	return &GoldmarkParser{
		defaults: defaults,
		engine:   newGoldmarkEngine(defaults),
	}
}

// Parse renders markdown with the parser defaults.
func (p *GoldmarkParser) Parse(markdown []byte) ([]byte, error) {
	return convert(p.engine, markdown)
}

// ParseWithOptions renders markdown with opts.
func (p *GoldmarkParser) ParseWithOptions(markdown []byte, opts interfaces.ParseOptions) ([]byte, error) {
	engine := p.engine
	if !sameOptions(opts, p.defaults) {
		engine = newGoldmarkEngine(opts)
	}
	return convert(engine, markdown)
}

func convert(engine goldmark.Markdown, markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := engine.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

func newGoldmarkEngine(opts interfaces.ParseOptions) goldmark.Markdown {
	// Heading ids are dropped on import, so the parser does not generate them.
	rendererOptions := []renderer.Option{html.WithXHTML()}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	return goldmark.New(
		goldmark.WithExtensions(collectExtensions(opts.Extensions)...),
		goldmark.WithRendererOptions(rendererOptions...),
	)
}

// storeExtensions lists the goldmark extensions whose output survives the
// store's HTML import. Footnotes and definition lists do not.
var storeExtensions = map[string][]goldmark.Extender{
	"gfm":           {extension.GFM},
	"table":         {extension.Table},
	"tables":        {extension.Table},
	"strikethrough": {extension.Strikethrough},
	"linkify":       {extension.Linkify},
	"autolink":      {extension.Linkify},
	"tasklist":      {extension.TaskList},
	"checklist":     {extension.TaskList},
	"typographer":   {extension.Typographer},
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		names = []string{"gfm"}
	}

	var extenders []goldmark.Extender
	seen := map[string]bool{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if seen[key] {
			continue
		}
		seen[key] = true
		extenders = append(extenders, storeExtensions[key]...)
	}
	return extenders
}

func sameOptions(a, b interfaces.ParseOptions) bool {
	return a.HardWraps == b.HardWraps && a.SafeMode == b.SafeMode && slices.Equal(a.Extensions, b.Extensions)
}
