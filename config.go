package md2quip

import "github.com/simonmcc/md2quip/internal/runtimeconfig"

var (
	ErrAccessTokenRequired   = runtimeconfig.ErrAccessTokenRequired
	ErrRootReferenceRequired = runtimeconfig.ErrRootReferenceRequired
)

const (
	DefaultConfigFile = runtimeconfig.DefaultConfigFile
	EnvPrefix         = runtimeconfig.EnvPrefix
)

type (
	Config         = runtimeconfig.Config
	QuipConfig     = runtimeconfig.QuipConfig
	RetryConfig    = runtimeconfig.RetryConfig
	ProjectConfig  = runtimeconfig.ProjectConfig
	PublishConfig  = runtimeconfig.PublishConfig
	MarkdownConfig = runtimeconfig.MarkdownConfig
	CrawlConfig    = runtimeconfig.CrawlConfig
	LoggingConfig  = runtimeconfig.LoggingConfig
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// IsConfigurationError reports whether err was raised by configuration
// validation.
func IsConfigurationError(err error) bool {
	return runtimeconfig.IsConfigurationError(err)
}
