package synccmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/simonmcc/md2quip/internal/crawler"
	"github.com/simonmcc/md2quip/internal/publisher"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// printer keeps the first write error so callers can print unconditionally.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// WriteTree prints the crawled folder tree from the root, two spaces of
// indentation per level. A folder reachable through several parents is
// expanded once. Skipped branches are listed after the tree.
func WriteTree(w io.Writer, result *crawler.Result, includeDocuments bool) error {
	t := &tree{
		printer:   printer{w: w},
		result:    result,
		documents: includeDocuments,
		expanded:  map[string]bool{},
		skipped:   map[string]crawler.Skip{},
	}
	for _, s := range result.Skipped {
		t.skipped[s.ID] = s
	}

	t.folder(result.RootID, 0)

	if !result.Complete() {
		t.printf("\ncrawled with omissions, %d skipped:\n", len(result.Skipped))
		for _, s := range result.Skipped {
			t.printf("  %s %s at depth %d: %s\n", s.Kind, s.ID, s.Depth, skipReason(s))
		}
	}
	return t.err
}

type tree struct {
	printer
	result    *crawler.Result
	documents bool
	expanded  map[string]bool
	skipped   map[string]crawler.Skip
}

func (t *tree) folder(id string, depth int) {
	indent := strings.Repeat("  ", depth)

	folder, ok := t.result.Folder(id)
	if !ok {
		t.printf("%s%s [%s]\n", indent, id, t.unresolved(id))
		return
	}
	if t.expanded[id] {
		t.printf("%s%s (%s) [listed above]\n", indent, crawler.FolderTitle(folder), id)
		return
	}
	t.expanded[id] = true
	t.printf("%s%s (%s)\n", indent, crawler.FolderTitle(folder), id)

	for _, child := range folder.Children {
		switch {
		case child.IsFolder():
			t.folder(child.FolderID, depth+1)
		case child.IsThread() && t.documents:
			t.thread(child.ThreadID, depth+1)
		}
	}
}

func (t *tree) thread(id string, depth int) {
	indent := strings.Repeat("  ", depth)
	thread, ok := t.result.Threads[id]
	if !ok {
		t.printf("%s- %s [%s]\n", indent, id, t.unresolved(id))
		return
	}
	title := strings.TrimSpace(thread.Title)
	if title == "" {
		title = "Untitled"
	}
	t.printf("%s- %s (%s)\n", indent, title, id)
}

func (t *tree) unresolved(id string) string {
	if s, ok := t.skipped[id]; ok {
		return "skipped: " + skipReason(s)
	}
	return "not crawled"
}

func skipReason(s crawler.Skip) string {
	switch {
	case s.Kind == crawler.SkipDepth:
		return "max depth reached"
	case s.Err != nil && s.StatusCode != 0:
		return fmt.Sprintf("status %d: %v", s.StatusCode, s.Err)
	case s.Err != nil:
		return s.Err.Error()
	default:
		return "unknown"
	}
}

// WriteSummary prints one line per file followed by the totals.
func WriteSummary(w io.Writer, result *publisher.Result, dryRun bool) error {
	p := &printer{w: w}

	for _, o := range result.Created {
		if dryRun {
			p.printf("would create %s in folder %s\n", o.Path, o.FolderID)
			continue
		}
		p.printf("created %s -> %s\n", o.Path, o.ThreadID)
	}
	for _, o := range result.Updated {
		if dryRun {
			p.printf("would update %s -> %s\n", o.Path, o.ThreadID)
			continue
		}
		p.printf("updated %s -> %s\n", o.Path, o.ThreadID)
	}
	for _, o := range result.Skipped {
		p.printf("skipped %s (%s)\n", o.Path, o.Reason)
	}

	failed := make([]string, 0, len(result.Failed))
	for path := range result.Failed {
		failed = append(failed, path)
	}
	sort.Strings(failed)
	for _, path := range failed {
		p.printf("failed %s: %v\n", path, result.Failed[path])
	}

	p.printf("%d created, %d updated, %d skipped, %d failed\n",
		len(result.Created), len(result.Updated), len(result.Skipped), len(result.Failed))
	if result.MetadataThreadID != "" {
		p.printf("metadata document %s\n", result.MetadataThreadID)
	}
	if result.Crawl != nil && !result.Crawl.Complete() {
		p.printf("remote tree crawled with omissions, %d skipped\n", len(result.Crawl.Skipped))
	}
	return p.err
}

// WriteUser prints the authenticated account.
func WriteUser(w io.Writer, user *interfaces.User) error {
	p := &printer{w: w}
	p.printf("name: %s\n", user.Name)
	p.printf("id: %s\n", user.ID)
	if len(user.Emails) > 0 {
		p.printf("emails: %s\n", strings.Join(user.Emails, ", "))
	}
	if user.PrivateFolderID != "" {
		p.printf("private folder: %s\n", user.PrivateFolderID)
	}
	if len(user.SharedFolderIDs) > 0 {
		p.printf("shared folders: %s\n", strings.Join(user.SharedFolderIDs, ", "))
	}
	return p.err
}
