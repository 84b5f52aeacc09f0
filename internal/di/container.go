// Package di wires configuration into the sync components.
package di

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/simonmcc/md2quip/internal/commands/synccmd"
	"github.com/simonmcc/md2quip/internal/crawler"
	"github.com/simonmcc/md2quip/internal/identity"
	"github.com/simonmcc/md2quip/internal/localfiles"
	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/internal/logging/gologger"
	"github.com/simonmcc/md2quip/internal/markdown"
	"github.com/simonmcc/md2quip/internal/metadata"
	"github.com/simonmcc/md2quip/internal/publisher"
	"github.com/simonmcc/md2quip/internal/quip"
	"github.com/simonmcc/md2quip/internal/resolver"
	"github.com/simonmcc/md2quip/internal/runtimeconfig"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// Container owns one instance of every component for a single run.
type Container struct {
	Config runtimeconfig.Config

	runID          string
	loggerProvider interfaces.LoggerProvider
	httpClient     *http.Client
	store          interfaces.DocumentStore
	updater        metadata.Updater

	resolver  *resolver.Resolver
	crawler   *crawler.Crawler
	sync      *metadata.Synchronizer
	markdown  *markdown.Service
	publisher *publisher.Publisher
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithStore replaces the HTTP document store, e.g. with quip.MemoryStore.
func WithStore(store interfaces.DocumentStore) Option {
	return func(c *Container) {
		c.store = store
	}
}

// WithLoggerProvider replaces the go-logger provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithHTTPClient sets the http.Client used by the document store client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Container) {
		c.httpClient = client
	}
}

// WithMetadataUpdater replaces the default ReplaceUpdater.
func WithMetadataUpdater(updater metadata.Updater) Option {
	return func(c *Container) {
		c.updater = updater
	}
}

// WithRunID fixes the run id attached to every log entry.
func WithRunID(id string) Option {
	return func(c *Container) {
		c.runID = strings.TrimSpace(id)
	}
}

// NewContainer validates cfg and builds every component.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{Config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.runID == "" {
		c.runID = identity.RunID()
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	if err := c.configureStore(); err != nil {
		return nil, err
	}
	c.configureServices()
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	provider, err := gologger.NewProvider(gologger.Config{
		Level:     c.Config.Logging.Level,
		Format:    c.Config.Logging.Format,
		AddSource: c.Config.Logging.AddSource,
		Focus:     c.Config.Logging.Focus,
		Fields:    map[string]any{"run_id": c.runID},
	})
	if err != nil {
		return fmt.Errorf("di: logger provider: %w", err)
	}
	c.loggerProvider = provider
	return nil
}

func (c *Container) configureStore() error {
	if c.store != nil {
		return nil
	}
	q := c.Config.Quip
	client, err := quip.NewClient(quip.Config{
		BaseURL:     q.BaseURL,
		AccessToken: q.AccessToken,
		Timeout:     q.RequestTimeout,
		Retry: quip.RetryPolicy{
			MaxAttempts: q.Retry.MaxAttempts,
			InitialWait: q.Retry.InitialWait,
			MaxWait:     q.Retry.MaxWait,
		},
	},
		quip.WithHTTPClient(c.httpClient),
		quip.WithLogger(logging.QuipLogger(c.loggerProvider)),
	)
	if err != nil {
		return fmt.Errorf("di: document store: %w", err)
	}
	c.store = client
	return nil
}

func (c *Container) configureServices() {
	crawlOpts := c.CrawlOptions()

	c.resolver = resolver.New(c.store, resolver.WithLogger(logging.ResolverLogger(c.loggerProvider)))
	c.crawler = crawler.New(c.store, crawler.WithLogger(logging.CrawlerLogger(c.loggerProvider)))

	syncOpts := []metadata.Option{
		metadata.WithLogger(logging.MetadataLogger(c.loggerProvider)),
		metadata.WithCrawler(c.crawler),
		metadata.WithCrawlOptions(crawlOpts),
	}
	if c.updater != nil {
		syncOpts = append(syncOpts, metadata.WithUpdater(c.updater))
	}
	c.sync = metadata.New(c.store, syncOpts...)

	md := c.Config.Markdown
	c.markdown = markdown.NewService(markdown.Config{
		Format: interfaces.Format(c.Config.Publish.Format),
		Parser: interfaces.ParseOptions{
			Extensions: md.Extensions,
			HardWraps:  md.HardWraps,
			SafeMode:   md.SafeMode,
		},
	}, markdown.WithLogger(logging.MarkdownLogger(c.loggerProvider)))

	c.publisher = publisher.New(c.store,
		publisher.WithLogger(logging.PublishLogger(c.loggerProvider)),
		publisher.WithCrawler(c.crawler),
		publisher.WithCrawlOptions(crawlOpts),
		publisher.WithSynchronizer(c.sync),
		publisher.WithMarkdown(c.markdown),
	)
}

// RunID returns the id attached to every log entry of this run.
func (c *Container) RunID() string { return c.runID }

// LoggerProvider returns the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// Store returns the document store.
func (c *Container) Store() interfaces.DocumentStore { return c.store }

// Resolver returns the root resolver.
func (c *Container) Resolver() *resolver.Resolver { return c.resolver }

// Crawler returns the remote tree crawler.
func (c *Container) Crawler() *crawler.Crawler { return c.crawler }

// Synchronizer returns the metadata synchronizer.
func (c *Container) Synchronizer() *metadata.Synchronizer { return c.sync }

// Markdown returns the document preparation service.
func (c *Container) Markdown() *markdown.Service { return c.markdown }

// Publisher returns the publisher.
func (c *Container) Publisher() *publisher.Publisher { return c.publisher }

// CrawlOptions returns the configured worker and depth limits.
func (c *Container) CrawlOptions() crawler.Options {
	return crawler.Options{
		Workers:  c.Config.Crawl.Workers,
		MaxDepth: c.Config.Crawl.MaxDepth,
	}
}

// FilesConfig returns the collector settings for root, or the configured
// project root when root is empty.
func (c *Container) FilesConfig(root string) localfiles.Config {
	p := c.Config.Project
	if strings.TrimSpace(root) == "" {
		root = p.Root
	}
	return localfiles.Config{
		Root:           root,
		Include:        append([]string(nil), p.Include...),
		Exclude:        append([]string(nil), p.Exclude...),
		FollowSymlinks: p.FollowSymlinks,
	}
}

// Collector returns a local file collector for root.
func (c *Container) Collector(root string) *localfiles.Collector {
	return localfiles.NewCollector(c.FilesConfig(root), localfiles.WithLogger(logging.LocalLogger(c.loggerProvider)))
}

// SyncServices bundles the components the command handlers drive.
func (c *Container) SyncServices() synccmd.Services {
	return synccmd.Services{
		Store:     c.store,
		Resolver:  c.resolver,
		Crawler:   c.crawler,
		Publisher: c.publisher,
		Files:     c.FilesConfig(""),
		Crawl:     c.CrawlOptions(),
	}
}

// Commands builds the command handlers, printing to out and registering them
// with reg when it is not nil.
func (c *Container) Commands(reg synccmd.CommandRegistry, out io.Writer, opts ...synccmd.Option) (*synccmd.HandlerSet, error) {
	return synccmd.RegisterSyncCommands(reg, c.SyncServices(), out, c.loggerProvider, opts...)
}
