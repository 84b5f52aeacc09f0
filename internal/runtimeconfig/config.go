package runtimeconfig

import (
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

const (
	DefaultBaseURL        = "https://platform.quip.com"
	DefaultRequestTimeout = 120 * time.Second
	DefaultConfigFile     = "md2quip.yml"
	EnvPrefix             = "MD2QUIP"

	FormatMarkdown = "markdown"
	FormatHTML     = "html"

	textCodeConfigurationInvalid = "CONFIGURATION_INVALID"
)

var ErrAccessTokenRequired = errors.New("md2quip config: access token is required")
var ErrRootReferenceRequired = errors.New("md2quip config: root folder reference is required")

// Config aggregates every setting the CLI and the module façade consume.
type Config struct {
	Quip     QuipConfig     `yaml:"quip" json:"quip"`
	Project  ProjectConfig  `yaml:"project" json:"project"`
	Publish  PublishConfig  `yaml:"publish" json:"publish"`
	Markdown MarkdownConfig `yaml:"markdown" json:"markdown"`
	Crawl    CrawlConfig    `yaml:"crawl" json:"crawl"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// QuipConfig describes how to reach the document store.
type QuipConfig struct {
	BaseURL     string `yaml:"base_url" json:"base_url"`
	AccessToken string `yaml:"access_token" json:"access_token"`
	// Root is the browser URL of the folder that anchors the mirror.
	Root           string        `yaml:"root" json:"root"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	Retry          RetryConfig   `yaml:"retry" json:"retry"`
}

// RetryConfig bounds retries of transient store failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait" json:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait" json:"max_wait"`
}

// ProjectConfig selects the local files to publish.
type ProjectConfig struct {
	Root           string   `yaml:"root" json:"root"`
	Include        []string `yaml:"include" json:"include"`
	Exclude        []string `yaml:"exclude" json:"exclude"`
	FollowSymlinks bool     `yaml:"follow_symlinks" json:"follow_symlinks"`
}

// PublishConfig controls where and how documents are written remotely.
type PublishConfig struct {
	AtRoot bool   `yaml:"at_root" json:"at_root"`
	Format string `yaml:"format" json:"format"`
	DryRun bool   `yaml:"dry_run" json:"dry_run"`
}

// MarkdownConfig configures the goldmark renderer used for the html format.
type MarkdownConfig struct {
	Extensions []string `yaml:"extensions" json:"extensions"`
	HardWraps  bool     `yaml:"hard_wraps" json:"hard_wraps"`
	SafeMode   bool     `yaml:"safe_mode" json:"safe_mode"`
}

// CrawlConfig tunes the remote tree walk. MaxDepth zero means unbounded.
type CrawlConfig struct {
	Workers  int `yaml:"workers" json:"workers"`
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
}

// LoggingConfig configures the go-logger provider.
type LoggingConfig struct {
	Level     string   `yaml:"level" json:"level"`
	Format    string   `yaml:"format" json:"format"`
	AddSource bool     `yaml:"add_source" json:"add_source"`
	Focus     []string `yaml:"focus" json:"focus"`
}

// DefaultConfig returns the defaults used when neither flags, environment nor
// config file provide a value.
func DefaultConfig() Config {
	return Config{
		Quip: QuipConfig{
			BaseURL:        DefaultBaseURL,
			RequestTimeout: DefaultRequestTimeout,
			Retry: RetryConfig{
				MaxAttempts: 3,
				InitialWait: 500 * time.Millisecond,
				MaxWait:     10 * time.Second,
			},
		},
		Project: ProjectConfig{
			Root:           ".",
			Include:        []string{"*.md"},
			Exclude:        []string{".*", "/templates"},
			FollowSymlinks: true,
		},
		Publish: PublishConfig{
			Format: FormatMarkdown,
		},
		Markdown: MarkdownConfig{
			Extensions: []string{"gfm"},
		},
		Crawl: CrawlConfig{
			Workers: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the shape of the configuration. Credentials are optional
// here so purely local commands can run without them.
func (cfg Config) Validate() error {
	err := validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Quip),
		validation.Field(&cfg.Project),
		validation.Field(&cfg.Publish),
		validation.Field(&cfg.Crawl),
		validation.Field(&cfg.Logging),
	)
	return configurationError(err)
}

// ValidateCredentials extends Validate with the access token check.
func (cfg Config) ValidateCredentials() error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Quip.AccessToken) == "" {
		return configurationSentinel(ErrAccessTokenRequired, "access_token")
	}
	return nil
}

// ValidateRemote extends ValidateCredentials with the root reference every
// folder command needs.
func (cfg Config) ValidateRemote() error {
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Quip.Root) == "" {
		return configurationSentinel(ErrRootReferenceRequired, "root")
	}
	return nil
}

// Validate implements validation.Validatable.
func (q QuipConfig) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.BaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&q.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&q.Retry),
	)
}

// Validate implements validation.Validatable.
func (r RetryConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MaxAttempts, validation.Min(0)),
		validation.Field(&r.InitialWait, validation.Min(time.Duration(0))),
		validation.Field(&r.MaxWait, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (p ProjectConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Include, validation.Required, validation.Each(validation.Required)),
		validation.Field(&p.Exclude, validation.Each(validation.Required)),
	)
}

// Validate implements validation.Validatable.
func (p PublishConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Format, validation.In(FormatMarkdown, FormatHTML)),
	)
}

// Validate implements validation.Validatable.
func (c CrawlConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Workers, validation.Min(1)),
		validation.Field(&c.MaxDepth, validation.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(func(value any) error {
			if level, _ := value.(string); level != "" && !isSupportedLevel(level) {
				return validation.NewError("validation_log_level", "must be one of trace, debug, info, warn, error, fatal")
			}
			return nil
		})),
		validation.Field(&l.Format, validation.By(func(value any) error {
			if format, _ := value.(string); format != "" && !isSupportedFormat(format) {
				return validation.NewError("validation_log_format", "must be one of json, console, pretty")
			}
			return nil
		})),
	)
}

// Redacted returns a copy safe to print.
func (cfg Config) Redacted() Config {
	if cfg.Quip.AccessToken != "" {
		cfg.Quip.AccessToken = "****"
	}
	return cfg
}

// IsConfigurationError reports whether err was produced by configuration
// validation.
func IsConfigurationError(err error) bool {
	var e *goerrors.Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.Category == goerrors.CategoryValidation && e.TextCode == textCodeConfigurationInvalid
}

func configurationError(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, "invalid md2quip configuration").
		WithTextCode(textCodeConfigurationInvalid)
}

func configurationSentinel(sentinel error, field string) error {
	return goerrors.Wrap(sentinel, goerrors.CategoryValidation, "invalid md2quip configuration").
		WithTextCode(textCodeConfigurationInvalid).
		WithMetadata(map[string]any{"field": "quip." + field})
}

func absoluteURL(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validation.NewError("validation_absolute_url", "must be an absolute URL")
	}
	return nil
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
