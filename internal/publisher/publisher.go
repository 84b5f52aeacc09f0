// Package publisher uploads local markdown files into a remote root folder
// and keeps the metadata manifest in step with what was published.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/goliatone/go-slug"

	"github.com/simonmcc/md2quip/internal/crawler"
	"github.com/simonmcc/md2quip/internal/localfiles"
	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/internal/markdown"
	"github.com/simonmcc/md2quip/internal/metadata"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

var ErrRootFolderRequired = errors.New("publisher: root folder id required")

// ErrDocumentUnresolved is recorded for a file whose mapped document was not
// returned by a partial crawl. The file is left alone rather than published
// as a second document.
var ErrDocumentUnresolved = errors.New("publisher: mapped document could not be fetched")

// Action describes what happened to a single file.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// Request is a single publish run.
type Request struct {
	Files        []localfiles.File
	RootFolderID string
	// AtRoot places every document in the root folder instead of the folder
	// matching the file's directory.
	AtRoot bool
	// DryRun plans the run without remote writes.
	DryRun bool
}

// Outcome reports one published file.
type Outcome struct {
	Path     string
	Title    string
	ThreadID string
	FolderID string
	Action   Action
	Reason   string
}

// Result summarises a publish run. In a dry run Created and Updated hold
// the planned actions and created outcomes have no ThreadID.
type Result struct {
	Created          []Outcome
	Updated          []Outcome
	Skipped          []Outcome
	Failed           map[string]error
	MetadataThreadID string
	Crawl            *crawler.Result
}

// Succeeded reports whether every file was published or deliberately skipped.
func (r *Result) Succeeded() bool {
	return len(r.Failed) == 0
}

// Publisher creates or updates one remote document per local file.
type Publisher struct {
	store     interfaces.DocumentStore
	crawler   *crawler.Crawler
	sync      *metadata.Synchronizer
	docs      *markdown.Service
	logger    interfaces.Logger
	crawlOpts crawler.Options
}

// Option customises a Publisher.
type Option func(*Publisher)

// WithLogger sets the publisher logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCrawler sets the crawler used to index the root folder.
func WithCrawler(c *crawler.Crawler) Option {
	return func(p *Publisher) {
		if c != nil {
			p.crawler = c
		}
	}
}

// WithCrawlOptions sets worker and depth limits. Documents are always
// included.
func WithCrawlOptions(opts crawler.Options) Option {
	return func(p *Publisher) {
		p.crawlOpts = opts
	}
}

// WithSynchronizer sets the metadata synchronizer.
func WithSynchronizer(sync *metadata.Synchronizer) Option {
	return func(p *Publisher) {
		if sync != nil {
			p.sync = sync
		}
	}
}

// WithMarkdown sets the service that prepares document payloads.
func WithMarkdown(docs *markdown.Service) Option {
	return func(p *Publisher) {
		if docs != nil {
			p.docs = docs
		}
	}
}

// New constructs a Publisher.
func New(store interfaces.DocumentStore, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.crawler == nil {
		p.crawler = crawler.New(store, crawler.WithLogger(p.logger))
	}
	if p.sync == nil {
		p.sync = metadata.New(store, metadata.WithLogger(p.logger), metadata.WithCrawler(p.crawler))
	}
	if p.docs == nil {
		p.docs = markdown.NewService(markdown.Config{}, markdown.WithLogger(p.logger))
	}
	return p
}

// Publish crawls the root once, loads the metadata manifest and upserts every
// file. A file whose manifest id is still reachable is edited in place. A
// mapped file whose document the crawl could not settle fails with
// ErrDocumentUnresolved. Otherwise a new document is created. Per-file failures are collected in
// Result.Failed. The manifest is saved after the last file.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Result, error) {
	rootID := strings.TrimSpace(req.RootFolderID)
	if rootID == "" {
		return nil, ErrRootFolderRequired
	}
	logger := logging.WithFields(p.logger, map[string]any{"folder_id": rootID, "dry_run": req.DryRun})

	opts := p.crawlOpts
	opts.IncludeDocuments = true
	crawl, err := p.crawler.Crawl(ctx, rootID, opts)
	if err != nil {
		return nil, err
	}
	if _, ok := crawl.Folder(rootID); !ok {
		logger.Warn("publish.root.unavailable", "skipped", len(crawl.Skipped))
	}

	record, err := p.metadataRecord(ctx, crawl, rootID, req.DryRun)
	if err != nil {
		logger.Error("publish.metadata.failed", "error", err)
		return nil, err
	}

	result := &Result{
		Failed:           map[string]error{},
		MetadataThreadID: record.ThreadID,
		Crawl:            crawl,
	}
	manifest := record.Manifest.Clone()
	folders := indexFolders(crawl, rootID)

	logger.Info("publish.started", "files", len(req.Files), "metadata_thread_id", record.ThreadID)

	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			logger.Warn("publish.cancelled", "published", len(result.Created)+len(result.Updated))
			return result, err
		}

		target := rootID
		if !req.AtRoot {
			target = folders.lookup(file.Dir(), rootID)
		}

		outcome, err := p.publishFile(ctx, file, target, manifest, crawl, req.DryRun)
		fileLogger := logging.WithFileContext(logger, file.Path, outcome.ThreadID, string(outcome.Action))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			fileLogger.Error("publish.file.failed", "error", err)
			result.Failed[file.Path] = err
			continue
		}

		switch outcome.Action {
		case ActionCreated:
			result.Created = append(result.Created, outcome)
		case ActionUpdated:
			result.Updated = append(result.Updated, outcome)
		default:
			result.Skipped = append(result.Skipped, outcome)
		}
		fileLogger.Info("publish.file."+string(outcome.Action), "target_folder_id", outcome.FolderID)
	}

	if !req.DryRun {
		if err := p.sync.Save(ctx, record, manifest); err != nil {
			return result, err
		}
	}

	logger.Info("publish.completed",
		"created", len(result.Created),
		"updated", len(result.Updated),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result, nil
}

func (p *Publisher) metadataRecord(ctx context.Context, crawl *crawler.Result, rootID string, dryRun bool) (*metadata.Record, error) {
	if !dryRun {
		return p.sync.Locate(ctx, crawl, rootID)
	}
	if record, ok := p.sync.Find(crawl, rootID); ok {
		return record, nil
	}
	if crawl.Partial() {
		return nil, metadata.ErrMetadataIncomplete
	}
	return &metadata.Record{Manifest: metadata.NewManifest()}, nil
}

func (p *Publisher) publishFile(ctx context.Context, file localfiles.File, target string, manifest *metadata.Manifest, crawl *crawler.Result, dryRun bool) (Outcome, error) {
	outcome := Outcome{Path: file.Path, FolderID: target}

	source, err := file.Read()
	if err != nil {
		return outcome, err
	}
	prepared, err := p.docs.Prepare(ctx, file.Path, source, file.ModTime())
	if err != nil {
		return outcome, err
	}
	outcome.Title = prepared.Title

	if prepared.Draft {
		outcome.Action = ActionSkipped
		outcome.Reason = "draft"
		return outcome, nil
	}

	if existing, ok := manifest.Lookup(file.Path); ok {
		if crawl.Unresolved(existing) {
			outcome.ThreadID = existing
			return outcome, fmt.Errorf("%w: %s", ErrDocumentUnresolved, existing)
		}
		if _, reachable := crawl.Threads[existing]; reachable {
			outcome.ThreadID = existing
			outcome.Action = ActionUpdated
			if dryRun {
				return outcome, nil
			}
			_, err := p.store.EditDocument(ctx, interfaces.EditDocumentRequest{
				ThreadID: existing,
				Content:  prepared.Content,
				Format:   prepared.Format,
				Location: interfaces.LocationReplaceDocument,
			})
			return outcome, err
		}
	}

	outcome.Action = ActionCreated
	if dryRun {
		return outcome, nil
	}
	thread, err := p.store.NewDocument(ctx, interfaces.NewDocumentRequest{
		Title:     prepared.Title,
		Content:   prepared.Content,
		Format:    prepared.Format,
		MemberIDs: []string{target},
	})
	if err != nil {
		return outcome, err
	}
	outcome.ThreadID = thread.ID
	manifest.Set(file.Path, thread.ID)
	return outcome, nil
}

// folderIndex maps slug normalised folder paths, relative to the root, to
// folder ids.
type folderIndex map[string]string

func indexFolders(crawl *crawler.Result, rootID string) folderIndex {
	index := folderIndex{}
	rootPath := crawl.PathOf(rootID)
	if rootPath == "" {
		return index
	}
	for p, id := range crawl.Paths {
		if p == rootPath || !strings.HasPrefix(p, rootPath+"/") {
			continue
		}
		key := slugPath(strings.TrimPrefix(p, rootPath+"/"))
		if existing, ok := index[key]; ok && existing < id {
			continue
		}
		index[key] = id
	}
	return index
}

// lookup returns the folder for a slash separated local directory, falling
// back to the root when no folder matches.
func (idx folderIndex) lookup(dir, rootID string) string {
	dir = path.Clean(dir)
	if dir == "." || dir == "/" {
		return rootID
	}
	if id, ok := idx[slugPath(dir)]; ok {
		return id
	}
	return rootID
}

func slugPath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, segment := range segments {
		segments[i] = slugSegment(segment)
	}
	return strings.Join(segments, "/")
}

func slugSegment(segment string) string {
	normalized, err := slug.Normalize(segment)
	if err != nil || normalized == "" {
		return strings.ToLower(strings.TrimSpace(segment))
	}
	return normalized
}
