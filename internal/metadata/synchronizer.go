// Package metadata finds, creates and saves the metadata document that maps
// local file paths to remote document ids inside a root folder.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/simonmcc/md2quip/internal/crawler"
	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// ErrMetadataUnavailable is returned when no metadata document exists and a
// new one could not be created.
var ErrMetadataUnavailable = errors.New("metadata: document not found and creation failed")

// ErrMetadataIncomplete is returned when no metadata document was found but
// the crawl failed to fetch part of the tree, so one may still exist.
var ErrMetadataIncomplete = errors.New("metadata: crawl incomplete, document may exist")

// Record is the metadata document as seen at the start of a run.
type Record struct {
	ThreadID string
	Created  bool
	Manifest *Manifest
}

// Synchronizer locates the metadata document of a root folder.
type Synchronizer struct {
	store     interfaces.DocumentStore
	crawler   *crawler.Crawler
	updater   Updater
	logger    interfaces.Logger
	crawlOpts crawler.Options
}

// Option customises a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the synchronizer logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithUpdater replaces the default ReplaceUpdater.
func WithUpdater(updater Updater) Option {
	return func(s *Synchronizer) {
		if updater != nil {
			s.updater = updater
		}
	}
}

// WithCrawler sets the crawler used by FindOrCreate.
func WithCrawler(c *crawler.Crawler) Option {
	return func(s *Synchronizer) {
		if c != nil {
			s.crawler = c
		}
	}
}

// WithCrawlOptions sets the crawl options used by FindOrCreate. Documents are
// always included.
func WithCrawlOptions(opts crawler.Options) Option {
	return func(s *Synchronizer) {
		s.crawlOpts = opts
	}
}

// New constructs a Synchronizer.
func New(store interfaces.DocumentStore, opts ...Option) *Synchronizer {
	s := &Synchronizer{store: store, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.crawler == nil {
		s.crawler = crawler.New(store, crawler.WithLogger(s.logger))
	}
	if s.updater == nil {
		s.updater = NewReplaceUpdater(store, s.logger)
	}
	return s
}

// FindOrCreate crawls rootID with documents and returns its metadata record.
func (s *Synchronizer) FindOrCreate(ctx context.Context, rootID string) (*Record, error) {
	opts := s.crawlOpts
	opts.IncludeDocuments = true

	result, err := s.crawler.Crawl(ctx, rootID, opts)
	if err != nil {
		return nil, err
	}
	return s.Locate(ctx, result, rootID)
}

// Locate searches a finished crawl for the metadata document and creates it
// in rootID when none is found. Documents shared into rootID win over ones
// found deeper in the tree, then the lowest id wins. A partial crawl without
// the document fails with ErrMetadataIncomplete instead of creating one.
func (s *Synchronizer) Locate(ctx context.Context, result *crawler.Result, rootID string) (*Record, error) {
	logger := logging.WithFields(s.logger, map[string]any{"folder_id": rootID})

	if record, ok := s.Find(result, rootID); ok {
		logger.Info("metadata.found", "thread_id", record.ThreadID, "entries", record.Manifest.Len())
		return record, nil
	}

	if result != nil && result.Partial() {
		logger.Error("metadata.lookup.incomplete", "skipped", len(result.Skipped))
		if cause := result.FirstFailure(); cause != nil {
			return nil, fmt.Errorf("%w: %w", ErrMetadataIncomplete, cause)
		}
		return nil, ErrMetadataIncomplete
	}

	manifest := NewManifest()
	thread, err := s.store.NewDocument(ctx, interfaces.NewDocumentRequest{
		Title:     MetadataTitle,
		Content:   manifest.RenderHTML(),
		Format:    interfaces.FormatHTML,
		MemberIDs: []string{rootID},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Error("metadata.create.failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}

	logger.Info("metadata.created", "thread_id", thread.ID)
	return &Record{ThreadID: thread.ID, Created: true, Manifest: manifest}, nil
}

// Find searches a finished crawl for the metadata document without creating
// one.
func (s *Synchronizer) Find(result *crawler.Result, rootID string) (*Record, bool) {
	if result == nil {
		return nil, false
	}
	thread := pick(result.ThreadsByTitle(MetadataTitle), rootID)
	if thread == nil {
		return nil, false
	}
	return &Record{ThreadID: thread.ID, Manifest: ParseManifest(thread.HTML)}, true
}

// Save stores manifest through the configured Updater.
func (s *Synchronizer) Save(ctx context.Context, record *Record, manifest *Manifest) error {
	return s.updater.Save(ctx, record, manifest)
}

func pick(candidates []*interfaces.Thread, rootID string) *interfaces.Thread {
	for _, thread := range candidates {
		if slices.Contains(thread.SharedFolderIDs, rootID) {
			return thread
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return nil
}
