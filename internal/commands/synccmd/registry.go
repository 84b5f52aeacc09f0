package synccmd

import (
	"errors"
	"io"

	"github.com/simonmcc/md2quip/internal/commands"
	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// CommandRegistry is the registration contract of a go-command registry.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the handlers built by RegisterSyncCommands.
type HandlerSet struct {
	ListFolders    *ListFoldersHandler
	ListLocalFiles *ListLocalFilesHandler
	Publish        *PublishHandler
	WhoAmI         *WhoAmIHandler
}

// Option customises handler wiring.
type Option func(*options)

type options struct {
	listFoldersOpts []commands.HandlerOption[ListFoldersCommand]
	localFilesOpts  []commands.HandlerOption[ListLocalFilesCommand]
	publishOpts     []commands.HandlerOption[PublishCommand]
	whoAmIOpts      []commands.HandlerOption[WhoAmICommand]
}

// WithListFoldersOptions forwards options to the ListFoldersHandler.
func WithListFoldersOptions(opts ...commands.HandlerOption[ListFoldersCommand]) Option {
	return func(cfg *options) {
		cfg.listFoldersOpts = append(cfg.listFoldersOpts, opts...)
	}
}

// WithListLocalFilesOptions forwards options to the ListLocalFilesHandler.
func WithListLocalFilesOptions(opts ...commands.HandlerOption[ListLocalFilesCommand]) Option {
	return func(cfg *options) {
		cfg.localFilesOpts = append(cfg.localFilesOpts, opts...)
	}
}

// WithPublishOptions forwards options to the PublishHandler.
func WithPublishOptions(opts ...commands.HandlerOption[PublishCommand]) Option {
	return func(cfg *options) {
		cfg.publishOpts = append(cfg.publishOpts, opts...)
	}
}

// WithWhoAmIOptions forwards options to the WhoAmIHandler.
func WithWhoAmIOptions(opts ...commands.HandlerOption[WhoAmICommand]) Option {
	return func(cfg *options) {
		cfg.whoAmIOpts = append(cfg.whoAmIOpts, opts...)
	}
}

// RegisterSyncCommands builds every handler and registers it with reg when
// reg is not nil.
func RegisterSyncCommands(reg CommandRegistry, svc Services, out io.Writer, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if svc.Store == nil || svc.Resolver == nil || svc.Crawler == nil || svc.Publisher == nil {
		return nil, errors.New("sync command registration: services are incomplete")
	}
	if out == nil {
		out = io.Discard
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	set := &HandlerSet{
		ListFolders:    NewListFoldersHandler(svc, out, logging.CommandLogger(provider, "list_folders"), cfg.listFoldersOpts...),
		ListLocalFiles: NewListLocalFilesHandler(svc, out, logging.CommandLogger(provider, "list_local_files"), cfg.localFilesOpts...),
		Publish:        NewPublishHandler(svc, out, logging.CommandLogger(provider, "publish"), cfg.publishOpts...),
		WhoAmI:         NewWhoAmIHandler(svc, out, logging.CommandLogger(provider, "whoami"), cfg.whoAmIOpts...),
	}

	if reg != nil {
		for _, handler := range []any{set.ListFolders, set.ListLocalFiles, set.Publish, set.WhoAmI} {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}
