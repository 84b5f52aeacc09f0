package markdown

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/simonmcc/md2quip/pkg/interfaces"
)

const sampleWithFrontMatter = `---
title: Release Notes
draft: true
tags:
  - docs
owner: platform
---
# Changelog

- first entry
`

func TestParseFrontMatter(t *testing.T) {
	fm, body, err := ParseFrontMatter([]byte(sampleWithFrontMatter))
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	if fm.Title != "Release Notes" || !fm.Draft {
		t.Fatalf("unexpected front matter %#v", fm)
	}
	if len(fm.Tags) != 1 || fm.Tags[0] != "docs" {
		t.Fatalf("unexpected tags %#v", fm.Tags)
	}
	if fm.Custom["owner"] != "platform" {
		t.Fatalf("expected custom owner field, got %#v", fm.Custom)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(body)), "# Changelog") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestParseFrontMatterWithoutHeader(t *testing.T) {
	fm, body, err := ParseFrontMatter([]byte("# Plain\n"))
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	if fm.Title != "" {
		t.Fatalf("expected empty title, got %q", fm.Title)
	}
	if string(body) != "# Plain\n" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestPrepareMarkdownKeepsBody(t *testing.T) {
	svc := NewService(Config{})

	prepared, err := svc.Prepare(context.Background(), "docs/CHANGELOG.md", []byte(sampleWithFrontMatter), time.Time{})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if prepared.Format != interfaces.FormatMarkdown {
		t.Fatalf("expected markdown format, got %q", prepared.Format)
	}
	if prepared.Title != "Release Notes" || !prepared.Draft {
		t.Fatalf("unexpected prepared doc %#v", prepared)
	}
	if strings.Contains(prepared.Content, "title:") {
		t.Fatalf("expected front matter to be stripped, got %q", prepared.Content)
	}
	if len(prepared.Checksum) != 32 {
		t.Fatalf("expected sha256 checksum, got %d bytes", len(prepared.Checksum))
	}
}

func TestPrepareHTMLRendersWithGoldmark(t *testing.T) {
	svc := NewService(Config{Format: interfaces.FormatHTML})

	prepared, err := svc.Prepare(context.Background(), "README.md", []byte("# Hello\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"), time.Time{})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !strings.Contains(prepared.Content, "<h1>Hello</h1>") {
		t.Fatalf("expected heading html, got %q", prepared.Content)
	}
	if !strings.Contains(prepared.Content, "<table>") {
		t.Fatalf("expected gfm table, got %q", prepared.Content)
	}
}

func TestPrepareUsesInjectedParser(t *testing.T) {
	stub := &stubParser{err: errors.New("boom")}
	svc := NewService(Config{Format: interfaces.FormatHTML}, WithParser(stub))

	if _, err := svc.Prepare(context.Background(), "a.md", []byte("x"), time.Time{}); err == nil {
		t.Fatal("expected parser error")
	}
	if stub.calls != 1 {
		t.Fatalf("expected parser to be called once, got %d", stub.calls)
	}
}

func TestPrepareHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewService(Config{}).Prepare(ctx, "a.md", nil, time.Time{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDocumentTitleFallbacks(t *testing.T) {
	cases := []struct {
		name string
		doc  *interfaces.Document
		want string
	}{
		{"front matter", &interfaces.Document{FilePath: "a.md", FrontMatter: interfaces.FrontMatter{Title: " Given "}}, "Given"},
		{"heading", &interfaces.Document{FilePath: "a.md", Body: []byte("intro\n# Heading\n")}, "Heading"},
		{"sub heading ignored", &interfaces.Document{FilePath: "docs/guide.md", Body: []byte("## Sub\n")}, "guide"},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DocumentTitle(tc.doc); got != tc.want {
				t.Fatalf("DocumentTitle() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCollectExtensions(t *testing.T) {
	if got := collectExtensions(nil); len(got) != 3 {
		t.Fatalf("expected default extensions, got %d", len(got))
	}
	if got := collectExtensions([]string{"table", "TABLE", "unknown", " "}); len(got) != 1 {
		t.Fatalf("expected deduplicated known extensions, got %d", len(got))
	}
}

type stubParser struct {
	calls int
	err   error
}

func (s *stubParser) Parse(markdown []byte) ([]byte, error) {
	return s.ParseWithOptions(markdown, interfaces.ParseOptions{})
}

func (s *stubParser) ParseWithOptions([]byte, interfaces.ParseOptions) ([]byte, error) {
	s.calls++
	return nil, s.err
}

func TestGoldmarkParserOptions(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{})

	out, err := parser.Parse([]byte("- [x] done\n\nSee[^1].\n\n[^1]: note\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(string(out), `type="checkbox"`) {
		t.Fatalf("expected checklist markup, got %q", out)
	}
	if strings.Contains(string(out), "footnote") {
		t.Fatalf("expected footnotes to stay disabled, got %q", out)
	}

	safe, err := parser.ParseWithOptions([]byte("<b>raw</b>\n"), interfaces.ParseOptions{SafeMode: true, Extensions: []string{"unknown"}})
	if err != nil {
		t.Fatalf("ParseWithOptions: %v", err)
	}
	if strings.Contains(string(safe), "<b>raw</b>") {
		t.Fatalf("expected raw html to be omitted in safe mode, got %q", safe)
	}
}
