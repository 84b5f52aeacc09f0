package markdown

import (
	"bytes"
	"fmt"
	"maps"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// ParseFrontMatter splits source into its YAML header and markdown body.
// Files without a header return an empty FrontMatter and the full source.
func ParseFrontMatter(source []byte) (interfaces.FrontMatter, []byte, error) {
	var meta frontMatterEnvelope

	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return interfaces.FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	return envelopeToFrontMatter(meta), body, nil
}

// BuildDocument assembles a Document. BodyHTML is left empty; rendering
// happens only for the html publish format.
func BuildDocument(path string, source []byte, modified time.Time) (*interfaces.Document, error) {
	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		return nil, err
	}

	return &interfaces.Document{
		FilePath:     path,
		FrontMatter:  fm,
		Body:         body,
		LastModified: modified,
	}, nil
}

type frontMatterEnvelope struct {
	Title  string         `yaml:"title"`
	Draft  bool           `yaml:"draft"`
	Tags   []string       `yaml:"tags"`
	Custom map[string]any `yaml:",inline"`
}

func envelopeToFrontMatter(env frontMatterEnvelope) interfaces.FrontMatter {
	custom := map[string]any{}
	maps.Copy(custom, env.Custom)

	return interfaces.FrontMatter{
		Title:  env.Title,
		Draft:  env.Draft,
		Tags:   append([]string(nil), env.Tags...),
		Custom: custom,
	}
}
