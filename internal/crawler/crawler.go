// Package crawler discovers the folder and document hierarchy reachable from
// a remote root folder.
//
// Every folder id is claimed in the Folder Cache before it is fetched, so a
// folder reachable through several parents, or through itself, is fetched at
// most once per crawl. Failures only prune the failing branch and are kept in
// Result.Skipped.
package crawler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/internal/quip"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// Options control a single crawl.
type Options struct {
	IncludeDocuments bool
	// Workers bounds concurrent remote reads. Values below two crawl
	// sequentially, depth-first.
	Workers int
	// MaxDepth stops descent below the given depth. Zero means unbounded.
	MaxDepth int
}

// Crawler walks a DocumentStore. It keeps no state between crawls.
type Crawler struct {
	store  interfaces.DocumentStore
	logger interfaces.Logger
}

// Option customises a Crawler.
type Option func(*Crawler)

// WithLogger sets the crawler logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Crawler.
func New(store interfaces.DocumentStore, opts ...Option) *Crawler {
	c := &Crawler{store: store, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Crawl visits rootID and everything reachable from it. On cancellation the
// partial result is returned together with the context error.
func (c *Crawler) Crawl(ctx context.Context, rootID string, opts Options) (*Result, error) {
	run := &crawl{
		crawler:   c,
		opts:      opts,
		result:    newResult(rootID),
		threads:   map[string]struct{}{},
		depthSeen: map[string]struct{}{},
	}
	if opts.Workers > 1 {
		run.sem = semaphore.NewWeighted(int64(opts.Workers))
	}

	c.logger.Info("crawler.started", "folder_id", rootID, "include_documents", opts.IncludeDocuments, "workers", opts.Workers)

	run.visit(ctx, rootID, 0)
	run.wg.Wait()

	sort.SliceStable(run.result.Skipped, func(i, j int) bool {
		a, b := run.result.Skipped[i], run.result.Skipped[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.ID < b.ID
	})

	if err := ctx.Err(); err != nil {
		c.logger.Warn("crawler.cancelled", "folder_id", rootID, "folders", len(run.result.Folders), "error", err)
		return run.result, err
	}

	c.logger.Info("crawler.completed",
		"folder_id", rootID,
		"folders", len(run.result.Folders),
		"documents", len(run.result.Threads),
		"skipped", len(run.result.Skipped),
	)
	return run.result, nil
}

type crawl struct {
	crawler *Crawler
	opts    Options
	sem     *semaphore.Weighted
	wg      sync.WaitGroup

	mu        sync.Mutex
	result    *Result
	threads   map[string]struct{}
	depthSeen map[string]struct{}
}

func (r *crawl) visit(ctx context.Context, id string, depth int) {
	if ctx.Err() != nil {
		return
	}

	entry, claimed := r.claimFolder(id, depth)
	if !claimed {
		return
	}

	logger := logging.WithFolderContext(r.crawler.logger, id, depth)

	folder, err := r.fetchFolder(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.skip(logger, Skip{ID: id, Kind: SkipFolder, Depth: depth, Err: err})
		return
	}

	r.mu.Lock()
	entry.Folder = folder
	entry.Path = r.pathLocked(folder)
	r.result.Paths[entry.Path] = id
	r.mu.Unlock()

	logger.Debug("crawler.folder.fetched", "path", entry.Path, "children", len(folder.Children))

	for _, child := range folder.Children {
		if ctx.Err() != nil {
			return
		}
		switch {
		case child.IsFolder():
			r.descend(ctx, logger, child.FolderID, depth+1)
		case child.IsThread() && r.opts.IncludeDocuments:
			r.visitThread(ctx, logger, child.ThreadID, depth+1)
		}
	}
}

func (r *crawl) descend(ctx context.Context, logger interfaces.Logger, id string, depth int) {
	if r.opts.MaxDepth > 0 && depth > r.opts.MaxDepth {
		r.mu.Lock()
		_, seen := r.depthSeen[id]
		r.depthSeen[id] = struct{}{}
		r.mu.Unlock()
		if !seen {
			r.skip(logger, Skip{ID: id, Kind: SkipDepth, Depth: depth})
		}
		return
	}

	if r.sem == nil {
		r.visit(ctx, id, depth)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.visit(ctx, id, depth)
	}()
}

// claimFolder is the atomic visited check plus placeholder insert.
func (r *crawl) claimFolder(id string, depth int) (*FolderEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.result.Folders[id]; ok {
		return nil, false
	}
	entry := &FolderEntry{ID: id, Depth: depth}
	r.result.Folders[id] = entry
	return entry, true
}

func (r *crawl) visitThread(ctx context.Context, logger interfaces.Logger, id string, depth int) {
	r.mu.Lock()
	if _, ok := r.threads[id]; ok {
		r.mu.Unlock()
		return
	}
	r.threads[id] = struct{}{}
	r.mu.Unlock()

	thread, err := r.fetchThread(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.skip(logger, Skip{ID: id, Kind: SkipDocument, Depth: depth, Err: err})
		return
	}

	r.mu.Lock()
	r.result.Threads[id] = thread
	r.mu.Unlock()
}

func (r *crawl) fetchFolder(ctx context.Context, id string) (*interfaces.Folder, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()
	return r.crawler.store.GetFolder(ctx, id)
}

func (r *crawl) fetchThread(ctx context.Context, id string) (*interfaces.Thread, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()
	return r.crawler.store.GetThread(ctx, id)
}

func (r *crawl) acquire(ctx context.Context) error {
	if r.sem == nil {
		return ctx.Err()
	}
	return r.sem.Acquire(ctx, 1)
}

func (r *crawl) release() {
	if r.sem != nil {
		r.sem.Release(1)
	}
}

func (r *crawl) skip(logger interfaces.Logger, s Skip) {
	if s.Err != nil {
		s.StatusCode = quip.StatusCode(s.Err)
		s.Code = quip.ErrorCode(s.Err)
	}

	switch {
	case s.Kind == SkipDepth:
		logger.Warn("crawler.depth.limited", "child_id", s.ID, "max_depth", r.opts.MaxDepth)
	case quip.IsAccessDenied(s.Err):
		logger.Warn("crawler.branch.restricted", "kind", s.Kind, "id", s.ID, "status_code", s.StatusCode, "error", s.Err)
	default:
		logger.Warn("crawler.branch.failed", "kind", s.Kind, "id", s.ID, "status_code", s.StatusCode, "error_code", s.Code, "error", s.Err)
	}

	r.mu.Lock()
	r.result.Skipped = append(r.result.Skipped, s)
	r.mu.Unlock()
}

// pathLocked walks the parent chain through the Folder Cache. The walk stops
// at the first parent that is missing, still a placeholder, or already on the
// chain, so leading ancestors can be missing from the result.
func (r *crawl) pathLocked(folder *interfaces.Folder) string {
	parts := []string{FolderTitle(folder)}
	onChain := map[string]struct{}{folder.ID: {}}

	for parentID := folder.ParentID; parentID != ""; {
		if _, loop := onChain[parentID]; loop {
			break
		}
		onChain[parentID] = struct{}{}

		entry, ok := r.result.Folders[parentID]
		if !ok || entry.Placeholder() {
			break
		}
		parts = append(parts, FolderTitle(entry.Folder))
		parentID = entry.Folder.ParentID
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// FolderTitle returns the folder title, or "Folder <id>" when it has none.
func FolderTitle(folder *interfaces.Folder) string {
	if folder == nil {
		return ""
	}
	if title := strings.TrimSpace(folder.Title); title != "" {
		return title
	}
	return fmt.Sprintf("Folder %s", folder.ID)
}
