package metadata

import (
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MetadataTitle is the reserved title of the metadata document.
const MetadataTitle = ".md2quip metadata"

const entrySeparator = " - "

// Entry maps a local relative path to a remote thread id.
type Entry struct {
	Path     string
	ThreadID string
}

// Manifest is the ordered path to thread id mapping stored in the metadata
// document body.
type Manifest struct {
	entries []Entry
	index   map[string]int
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{index: map[string]int{}}
}

// Set records threadID for path, keeping the position of an existing entry.
func (m *Manifest) Set(path, threadID string) {
	path = strings.TrimSpace(path)
	threadID = strings.TrimSpace(threadID)
	if path == "" || threadID == "" {
		return
	}
	if i, ok := m.index[path]; ok {
		m.entries[i].ThreadID = threadID
		return
	}
	m.index[path] = len(m.entries)
	m.entries = append(m.entries, Entry{Path: path, ThreadID: threadID})
}

// Lookup returns the thread id recorded for path.
func (m *Manifest) Lookup(path string) (string, bool) {
	if m == nil {
		return "", false
	}
	i, ok := m.index[path]
	if !ok {
		return "", false
	}
	return m.entries[i].ThreadID, true
}

// Entries returns a copy of the entries in insertion order.
func (m *Manifest) Entries() []Entry {
	if m == nil {
		return nil
	}
	return append([]Entry(nil), m.entries...)
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Clone returns an independent copy.
func (m *Manifest) Clone() *Manifest {
	out := NewManifest()
	for _, e := range m.Entries() {
		out.Set(e.Path, e.ThreadID)
	}
	return out
}

// Equal reports whether both manifests hold the same entries in the same order.
func (m *Manifest) Equal(other *Manifest) bool {
	a, b := m.Entries(), other.Entries()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RenderHTML renders the metadata document body: a title heading followed by
// one "path - thread_id" paragraph per entry.
func (m *Manifest) RenderHTML() string {
	var b strings.Builder
	b.WriteString("<h1>")
	b.WriteString(html.EscapeString(MetadataTitle))
	b.WriteString("</h1>")
	for _, e := range m.Entries() {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(e.Path + entrySeparator + e.ThreadID))
		b.WriteString("</p>")
	}
	return b.String()
}

// ParseManifest reads a manifest back from a metadata document body.
// Paragraphs are read as "path - thread_id", split on the last separator.
// A paragraph carrying a data-thread-id attribute uses its text as the path.
// Anything else in the body is ignored.
func ParseManifest(body string) *Manifest {
	manifest := NewManifest()
	tokenizer := nethtml.NewTokenizer(strings.NewReader(body))

	var (
		inParagraph bool
		attrID      string
		text        strings.Builder
	)

	for {
		switch tokenizer.Next() {
		case nethtml.ErrorToken:
			return manifest
		case nethtml.StartTagToken:
			token := tokenizer.Token()
			if token.DataAtom != atom.P {
				continue
			}
			inParagraph = true
			attrID = ""
			text.Reset()
			for _, attr := range token.Attr {
				if attr.Key == "data-thread-id" {
					attrID = strings.TrimSpace(attr.Val)
				}
			}
		case nethtml.TextToken:
			if inParagraph {
				text.Write(tokenizer.Text())
			}
		case nethtml.EndTagToken:
			name, _ := tokenizer.TagName()
			if atom.Lookup(name) != atom.P || !inParagraph {
				continue
			}
			inParagraph = false
			addParagraph(manifest, strings.TrimSpace(text.String()), attrID)
		}
	}
}

func addParagraph(manifest *Manifest, text, attrID string) {
	if attrID != "" {
		manifest.Set(text, attrID)
		return
	}
	i := strings.LastIndex(text, entrySeparator)
	if i <= 0 {
		return
	}
	manifest.Set(text[:i], text[i+len(entrySeparator):])
}
