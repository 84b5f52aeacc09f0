// Package md2quip mirrors a local tree of markdown files into a remote
// document store folder.
package md2quip

import (
	"context"
	"io"
	"strings"

	"github.com/simonmcc/md2quip/internal/commands/synccmd"
	"github.com/simonmcc/md2quip/internal/crawler"
	"github.com/simonmcc/md2quip/internal/di"
	"github.com/simonmcc/md2quip/internal/localfiles"
	"github.com/simonmcc/md2quip/internal/metadata"
	"github.com/simonmcc/md2quip/internal/publisher"
	"github.com/simonmcc/md2quip/internal/quip"
	"github.com/simonmcc/md2quip/internal/resolver"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// CrawlResult exports the crawl caches.
type CrawlResult = crawler.Result

// PublishResult exports the publish summary.
type PublishResult = publisher.Result

// MetadataRecord exports the metadata document record.
type MetadataRecord = metadata.Record

// CommandSet exports the CLI command handlers.
type CommandSet = synccmd.HandlerSet

// CommandRegistry exports the go-command registration contract.
type CommandRegistry = synccmd.CommandRegistry

// DocumentStore exports the document store contract.
type DocumentStore = interfaces.DocumentStore

// MemoryStore exports the in-memory document store.
type MemoryStore = quip.MemoryStore

// Option customises module wiring.
type Option = di.Option

var (
	WithStore           = di.WithStore
	WithLoggerProvider  = di.WithLoggerProvider
	WithHTTPClient      = di.WithHTTPClient
	WithMetadataUpdater = di.WithMetadataUpdater
	WithRunID           = di.WithRunID
)

// NewMemoryStore returns an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return quip.NewMemoryStore()
}

// IsResolutionError reports whether the root reference could not be resolved.
func IsResolutionError(err error) bool {
	return resolver.IsResolutionError(err)
}

// IsAccessDenied reports whether the store refused access.
func IsAccessDenied(err error) bool {
	return quip.IsAccessDenied(err)
}

// Module is the entry point for library callers.
type Module struct {
	container *di.Container
}

// New validates cfg and wires every component.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Config returns the configuration the module was built with.
func (m *Module) Config() Config {
	return m.container.Config
}

// RunID returns the id attached to every log entry.
func (m *Module) RunID() string {
	return m.container.RunID()
}

// ResolveRoot turns the configured root reference into a folder id.
func (m *Module) ResolveRoot(ctx context.Context) (string, error) {
	if err := m.container.Config.ValidateRemote(); err != nil {
		return "", err
	}
	return m.container.Resolver().Resolve(ctx, m.container.Config.Quip.Root)
}

// ListFolders crawls the folder tree below the configured root.
func (m *Module) ListFolders(ctx context.Context) (*CrawlResult, error) {
	return m.crawl(ctx, false)
}

// ListFoldersAndDocuments crawls folders and their documents.
func (m *Module) ListFoldersAndDocuments(ctx context.Context) (*CrawlResult, error) {
	return m.crawl(ctx, true)
}

func (m *Module) crawl(ctx context.Context, includeDocuments bool) (*CrawlResult, error) {
	rootID, err := m.ResolveRoot(ctx)
	if err != nil {
		return nil, err
	}
	opts := m.container.CrawlOptions()
	opts.IncludeDocuments = includeDocuments
	return m.container.Crawler().Crawl(ctx, rootID, opts)
}

// LocalFiles lists the files below projectRoot, or the configured project
// root when empty, that would be published.
func (m *Module) LocalFiles(ctx context.Context, projectRoot string) ([]string, error) {
	return m.container.Collector(projectRoot).Collect(ctx)
}

// Metadata finds or creates the metadata document of the configured root.
func (m *Module) Metadata(ctx context.Context) (*MetadataRecord, error) {
	rootID, err := m.ResolveRoot(ctx)
	if err != nil {
		return nil, err
	}
	return m.container.Synchronizer().FindOrCreate(ctx, rootID)
}

// PublishOptions override the configured publish settings for one run.
type PublishOptions struct {
	ProjectRoot string
	AtRoot      bool
	DryRun      bool
}

// Publish collects the project files and publishes them into the root.
func (m *Module) Publish(ctx context.Context, opts PublishOptions) (*PublishResult, error) {
	rootID, err := m.ResolveRoot(ctx)
	if err != nil {
		return nil, err
	}

	root := strings.TrimSpace(opts.ProjectRoot)
	if root == "" {
		root = m.container.Config.Project.Root
	}
	collector := m.container.Collector(root)
	paths, err := collector.Collect(ctx)
	if err != nil {
		return nil, err
	}

	return m.container.Publisher().Publish(ctx, publisher.Request{
		Files:        localfiles.Files(collector.Root(), paths),
		RootFolderID: rootID,
		AtRoot:       opts.AtRoot || m.container.Config.Publish.AtRoot,
		DryRun:       opts.DryRun || m.container.Config.Publish.DryRun,
	})
}

// WhoAmI returns the account behind the access token.
func (m *Module) WhoAmI(ctx context.Context) (*interfaces.User, error) {
	if err := m.container.Config.ValidateCredentials(); err != nil {
		return nil, err
	}
	return m.container.Store().GetAuthenticatedUser(ctx)
}

// Commands builds the command handlers writing to out.
func (m *Module) Commands(reg CommandRegistry, out io.Writer) (*CommandSet, error) {
	return m.container.Commands(reg, out)
}
