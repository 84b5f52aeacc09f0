package logging

import (
	"context"
	"strings"

	"github.com/simonmcc/md2quip/pkg/interfaces"
)

const (
	rootModule     = "md2quip"
	crawlerModule  = "md2quip.crawler"
	resolverModule = "md2quip.resolver"
	localModule    = "md2quip.local"
	metadataModule = "md2quip.metadata"
	publishModule  = "md2quip.publish"
	quipModule     = "md2quip.quip"
	commandsModule = "md2quip.commands"
	markdownModule = "md2quip.markdown"
)

const (
	fieldFolderID  = "folder_id"
	fieldDepth     = "depth"
	fieldLocalPath = "local_path"
	fieldThreadID  = "thread_id"
	fieldAction    = "sync_action"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module name is attached as
// a structured field so entries can be filtered per component.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// RootLogger returns the top level md2quip logger.
func RootLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, rootModule)
}

// CrawlerLogger returns the logger namespace used by the remote tree crawler.
func CrawlerLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, crawlerModule)
}

// ResolverLogger returns the logger namespace used by the root resolver.
func ResolverLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, resolverModule)
}

// LocalLogger returns the logger namespace used by the local file collector.
func LocalLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, localModule)
}

// MetadataLogger returns the logger namespace used by the metadata synchronizer.
func MetadataLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, metadataModule)
}

// PublishLogger returns the logger namespace used by the publisher.
func PublishLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, publishModule)
}

// QuipLogger returns the logger namespace used by the document store client.
func QuipLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, quipModule)
}

// MarkdownLogger returns the logger namespace used when rendering local files.
func MarkdownLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, markdownModule)
}

// CommandLogger returns a logger scoped to a single CLI command.
func CommandLogger(provider interfaces.LoggerProvider, command string) interfaces.Logger {
	command = strings.TrimSpace(command)
	if command == "" {
		return ModuleLogger(provider, commandsModule)
	}
	return ModuleLogger(provider, commandsModule+"."+command)
}

// WithFolderContext tags entries with the remote folder being visited.
func WithFolderContext(logger interfaces.Logger, folderID string, depth int) interfaces.Logger {
	fields := map[string]any{fieldDepth: depth}
	if trimmed := strings.TrimSpace(folderID); trimmed != "" {
		fields[fieldFolderID] = trimmed
	}
	return WithFields(logger, fields)
}

// WithFileContext tags entries with the local file and, once known, the
// remote document it maps to. Empty values are ignored.
func WithFileContext(logger interfaces.Logger, path, threadID, action string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		fields[fieldLocalPath] = trimmed
	}
	if trimmed := strings.TrimSpace(threadID); trimmed != "" {
		fields[fieldThreadID] = trimmed
	}
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		fields[fieldAction] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
