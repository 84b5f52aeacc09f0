package synccmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	command "github.com/goliatone/go-command"

	"github.com/simonmcc/md2quip/internal/commands"
	"github.com/simonmcc/md2quip/internal/crawler"
	"github.com/simonmcc/md2quip/internal/localfiles"
	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/internal/publisher"
	"github.com/simonmcc/md2quip/internal/resolver"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

const (
	listFoldersOperation    = "sync.list_folders"
	listLocalFilesOperation = "sync.list_local_files"
	publishOperation        = "sync.publish"
	whoAmIOperation         = "sync.whoami"
)

// ErrPublishIncomplete is returned after a publish run in which at least one
// file failed. The summary has already been printed.
var ErrPublishIncomplete = errors.New("publish: some files failed")

var (
	_ command.Commander[ListFoldersCommand]    = (*ListFoldersHandler)(nil)
	_ command.Commander[ListLocalFilesCommand] = (*ListLocalFilesHandler)(nil)
	_ command.Commander[PublishCommand]        = (*PublishHandler)(nil)
	_ command.Commander[WhoAmICommand]         = (*WhoAmIHandler)(nil)
)

// Services are the components the handlers drive.
type Services struct {
	Store     interfaces.DocumentStore
	Resolver  *resolver.Resolver
	Crawler   *crawler.Crawler
	Publisher *publisher.Publisher
	// Files carries the include, exclude and symlink settings. Root is
	// taken from each command.
	Files localfiles.Config
	Crawl crawler.Options
}

// ListFoldersHandler resolves the root, crawls it and prints the tree.
type ListFoldersHandler struct {
	inner *commands.Handler[ListFoldersCommand]
}

// NewListFoldersHandler builds a ListFoldersHandler printing to out.
func NewListFoldersHandler(svc Services, out io.Writer, logger interfaces.Logger, opts ...commands.HandlerOption[ListFoldersCommand]) *ListFoldersHandler {
	logger = ensureLogger(logger)

	exec := func(ctx context.Context, msg ListFoldersCommand) error {
		rootID, err := svc.Resolver.Resolve(ctx, msg.RootReference)
		if err != nil {
			return err
		}

		crawlOpts := svc.Crawl
		crawlOpts.IncludeDocuments = msg.IncludeDocuments
		result, err := svc.Crawler.Crawl(ctx, rootID, crawlOpts)
		if err != nil {
			return err
		}
		return WriteTree(out, result, msg.IncludeDocuments)
	}

	handlerOpts := []commands.HandlerOption[ListFoldersCommand]{
		commands.WithLogger[ListFoldersCommand](logger),
		commands.WithOperation[ListFoldersCommand](listFoldersOperation),
		commands.WithMessageFields(func(msg ListFoldersCommand) map[string]any {
			return map[string]any{"include_documents": msg.IncludeDocuments}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ListFoldersCommand](logger)),
	}
	return &ListFoldersHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[ListFoldersCommand].
func (h *ListFoldersHandler) Execute(ctx context.Context, msg ListFoldersCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ListLocalFilesHandler prints the collected project files one per line.
type ListLocalFilesHandler struct {
	inner *commands.Handler[ListLocalFilesCommand]
}

// NewListLocalFilesHandler builds a ListLocalFilesHandler printing to out.
func NewListLocalFilesHandler(svc Services, out io.Writer, logger interfaces.Logger, opts ...commands.HandlerOption[ListLocalFilesCommand]) *ListLocalFilesHandler {
	logger = ensureLogger(logger)

	exec := func(ctx context.Context, msg ListLocalFilesCommand) error {
		paths, err := collect(ctx, svc.Files, msg.ProjectRoot, logger)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if _, err := fmt.Fprintln(out, p); err != nil {
				return err
			}
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[ListLocalFilesCommand]{
		commands.WithLogger[ListLocalFilesCommand](logger),
		commands.WithOperation[ListLocalFilesCommand](listLocalFilesOperation),
		commands.WithMessageFields(func(msg ListLocalFilesCommand) map[string]any {
			return map[string]any{"project_root": msg.ProjectRoot}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ListLocalFilesCommand](logger)),
	}
	return &ListLocalFilesHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[ListLocalFilesCommand].
func (h *ListLocalFilesHandler) Execute(ctx context.Context, msg ListLocalFilesCommand) error {
	return h.inner.Execute(ctx, msg)
}

// PublishHandler collects the project files and publishes them.
type PublishHandler struct {
	inner *commands.Handler[PublishCommand]
}

// NewPublishHandler builds a PublishHandler printing its summary to out.
func NewPublishHandler(svc Services, out io.Writer, logger interfaces.Logger, opts ...commands.HandlerOption[PublishCommand]) *PublishHandler {
	logger = ensureLogger(logger)

	exec := func(ctx context.Context, msg PublishCommand) error {
		paths, err := collect(ctx, svc.Files, msg.ProjectRoot, logger)
		if err != nil {
			return err
		}
		rootID, err := svc.Resolver.Resolve(ctx, msg.RootReference)
		if err != nil {
			return err
		}

		result, err := svc.Publisher.Publish(ctx, publisher.Request{
			Files:        localfiles.Files(msg.ProjectRoot, paths),
			RootFolderID: rootID,
			AtRoot:       msg.AtRoot,
			DryRun:       msg.DryRun,
		})
		if result != nil {
			if werr := WriteSummary(out, result, msg.DryRun); werr != nil && err == nil {
				err = werr
			}
		}
		if err != nil {
			return err
		}
		if !result.Succeeded() {
			return fmt.Errorf("%w: %d of %d", ErrPublishIncomplete, len(result.Failed), len(paths))
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[PublishCommand]{
		commands.WithLogger[PublishCommand](logger),
		commands.WithOperation[PublishCommand](publishOperation),
		commands.WithMessageFields(func(msg PublishCommand) map[string]any {
			fields := map[string]any{"project_root": msg.ProjectRoot}
			if msg.AtRoot {
				fields["at_root"] = true
			}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[PublishCommand](logger)),
	}
	return &PublishHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[PublishCommand].
func (h *PublishHandler) Execute(ctx context.Context, msg PublishCommand) error {
	return h.inner.Execute(ctx, msg)
}

// WhoAmIHandler prints the authenticated account.
type WhoAmIHandler struct {
	inner *commands.Handler[WhoAmICommand]
}

// NewWhoAmIHandler builds a WhoAmIHandler printing to out.
func NewWhoAmIHandler(svc Services, out io.Writer, logger interfaces.Logger, opts ...commands.HandlerOption[WhoAmICommand]) *WhoAmIHandler {
	logger = ensureLogger(logger)

	exec := func(ctx context.Context, _ WhoAmICommand) error {
		user, err := svc.Store.GetAuthenticatedUser(ctx)
		if err != nil {
			return err
		}
		return WriteUser(out, user)
	}

	handlerOpts := []commands.HandlerOption[WhoAmICommand]{
		commands.WithLogger[WhoAmICommand](logger),
		commands.WithOperation[WhoAmICommand](whoAmIOperation),
		commands.WithTelemetry(commands.DefaultTelemetry[WhoAmICommand](logger)),
	}
	return &WhoAmIHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[WhoAmICommand].
func (h *WhoAmIHandler) Execute(ctx context.Context, msg WhoAmICommand) error {
	return h.inner.Execute(ctx, msg)
}

func collect(ctx context.Context, base localfiles.Config, root string, logger interfaces.Logger) ([]string, error) {
	cfg := base
	cfg.Root = strings.TrimSpace(root)
	return localfiles.NewCollector(cfg, localfiles.WithLogger(logger)).Collect(ctx)
}

func ensureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}
