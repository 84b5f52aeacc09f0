package crawler

import (
	"sort"

	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// SkipKind classifies an omitted branch.
type SkipKind string

const (
	SkipFolder   SkipKind = "folder"
	SkipDocument SkipKind = "document"
	SkipDepth    SkipKind = "depth"
)

// FolderEntry is a Folder Cache slot. Folder is nil while the fetch is in
// flight and stays nil when the fetch failed.
type FolderEntry struct {
	ID     string
	Depth  int
	Path   string
	Folder *interfaces.Folder
}

// Placeholder reports whether the folder was visited but never resolved.
func (e *FolderEntry) Placeholder() bool {
	return e == nil || e.Folder == nil
}

// Skip records a branch left out of the crawl.
type Skip struct {
	ID         string
	Kind       SkipKind
	Depth      int
	StatusCode int
	Code       string
	Err        error
}

// Result holds the three crawl caches. Paths maps a slash joined title path
// to a folder id.
type Result struct {
	RootID  string
	Folders map[string]*FolderEntry
	Threads map[string]*interfaces.Thread
	Paths   map[string]string
	Skipped []Skip
}

func newResult(rootID string) *Result {
	return &Result{
		RootID:  rootID,
		Folders: map[string]*FolderEntry{},
		Threads: map[string]*interfaces.Thread{},
		Paths:   map[string]string{},
	}
}

// Complete reports whether every reachable branch was crawled.
func (r *Result) Complete() bool {
	return len(r.Skipped) == 0
}

// Partial reports whether a folder or document fetch failed. Depth skips are
// not counted.
func (r *Result) Partial() bool {
	for _, skip := range r.Skipped {
		if skip.Kind == SkipFolder || skip.Kind == SkipDocument {
			return true
		}
	}
	return false
}

// FirstFailure returns the error of the first failed fetch, or nil.
func (r *Result) FirstFailure() error {
	for _, skip := range r.Skipped {
		if skip.Err != nil {
			return skip.Err
		}
	}
	return nil
}

// Unresolved reports whether threadID may still exist remotely although it is
// missing from the Thread Cache: its own fetch failed, or some folder branch
// was never listed.
func (r *Result) Unresolved(threadID string) bool {
	if _, ok := r.Threads[threadID]; ok {
		return false
	}
	for _, skip := range r.Skipped {
		switch skip.Kind {
		case SkipFolder, SkipDepth:
			return true
		case SkipDocument:
			if skip.ID == threadID {
				return true
			}
		}
	}
	return false
}

// Folder returns the fetched record for id.
func (r *Result) Folder(id string) (*interfaces.Folder, bool) {
	entry, ok := r.Folders[id]
	if !ok || entry.Placeholder() {
		return nil, false
	}
	return entry.Folder, true
}

// PathOf returns the reconstructed path of a fetched folder.
func (r *Result) PathOf(id string) string {
	if entry, ok := r.Folders[id]; ok {
		return entry.Path
	}
	return ""
}

// Visited reports whether id has a Folder Cache slot, placeholder or not.
func (r *Result) Visited(id string) bool {
	_, ok := r.Folders[id]
	return ok
}

// SortedPaths returns the Path Cache keys in lexical order.
func (r *Result) SortedPaths() []string {
	paths := make([]string, 0, len(r.Paths))
	for p := range r.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ThreadsByTitle returns the cached documents titled title, ordered by id.
func (r *Result) ThreadsByTitle(title string) []*interfaces.Thread {
	var out []*interfaces.Thread
	for _, thread := range r.Threads {
		if thread.Title == title {
			out = append(out, thread)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
