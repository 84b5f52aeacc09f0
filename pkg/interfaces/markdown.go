package interfaces

import "time"

// MarkdownParser converts markdown into HTML for stores that only accept
// markup.
type MarkdownParser interface {
	Parse(markdown []byte) ([]byte, error)
	ParseWithOptions(markdown []byte, opts ParseOptions) ([]byte, error)
}

// ParseOptions toggles parser features per call.
type ParseOptions struct {
	Extensions []string
	HardWraps  bool
	SafeMode   bool
}

// Document is a local markdown file ready for publishing.
type Document struct {
	FilePath     string
	FrontMatter  FrontMatter
	Body         []byte
	BodyHTML     []byte
	LastModified time.Time
	// Checksum is the SHA-256 digest of the raw file.
	Checksum []byte
}

// FrontMatter holds the optional YAML header of a markdown file.
type FrontMatter struct {
	Title  string         `yaml:"title" json:"title"`
	Draft  bool           `yaml:"draft" json:"draft"`
	Tags   []string       `yaml:"tags" json:"tags"`
	Custom map[string]any `yaml:",inline" json:"custom"`
}
