package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/simonmcc/md2quip"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps CLI flag names onto configuration keys. The MD2QUIP_<FLAG>
// environment variables and the flat flag-named keys of md2quip.yml resolve
// through the same table.
var flagKeys = map[string]string{
	"quip-thread-id":        "quip.root",
	"quip-api-base-url":     "quip.base_url",
	"quip-api-access-token": "quip.access_token",
	"log-format":            "logging.format",
	"workers":               "crawl.workers",
	"path":                  "project.root",
	"publish-at-root":       "publish.at_root",
	"dry-run":               "publish.dry_run",
}

type configLoader struct {
	v          *viper.Viper
	configFile string
	debug      bool
}

func newConfigLoader() *configLoader {
	v := viper.New()
	v.SetEnvPrefix(md2quip.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for flag, key := range flagKeys {
		_ = v.BindEnv(key, md2quip.EnvPrefix+"_"+envName(flag), md2quip.EnvPrefix+"_"+envName(key))
	}
	return &configLoader{v: v}
}

func (l *configLoader) bindGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&l.configFile, "config", "c", md2quip.DefaultConfigFile, "Read settings from the specified YAML file")
	flags.BoolVar(&l.debug, "debug", false, "Log at debug level")
	flags.String("quip-thread-id", "", "URL of the Quip folder that receives the documents")
	flags.String("quip-api-base-url", "", "Quip API base URL")
	flags.String("quip-api-access-token", "", "Quip API access token")
	flags.String("log-format", "", "Log format: console, json or pretty")
	flags.Int("workers", 0, "Concurrent folder fetches while crawling")
}

// bindFlags binds the flags of the command being run. Sub-commands share flag
// names, so binding happens per invocation rather than at construction.
func (l *configLoader) bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = l.v.BindPFlag(key, f)
		}
	})
}

// Load layers flags over environment over file over defaults.
func (l *configLoader) Load() (md2quip.Config, error) {
	if err := l.readFile(); err != nil {
		return md2quip.Config{}, err
	}

	cfg := md2quip.DefaultConfig()
	v := l.v

	setString(v, "quip.base_url", &cfg.Quip.BaseURL)
	setString(v, "quip.access_token", &cfg.Quip.AccessToken)
	setString(v, "quip.root", &cfg.Quip.Root)
	setDuration(v, "quip.request_timeout", &cfg.Quip.RequestTimeout)
	setInt(v, "quip.retry.max_attempts", &cfg.Quip.Retry.MaxAttempts)
	setDuration(v, "quip.retry.initial_wait", &cfg.Quip.Retry.InitialWait)
	setDuration(v, "quip.retry.max_wait", &cfg.Quip.Retry.MaxWait)

	setString(v, "project.root", &cfg.Project.Root)
	setStrings(v, "project.include", &cfg.Project.Include)
	setStrings(v, "project.exclude", &cfg.Project.Exclude)
	setBool(v, "project.follow_symlinks", &cfg.Project.FollowSymlinks)

	setBool(v, "publish.at_root", &cfg.Publish.AtRoot)
	setString(v, "publish.format", &cfg.Publish.Format)
	setBool(v, "publish.dry_run", &cfg.Publish.DryRun)

	setStrings(v, "markdown.extensions", &cfg.Markdown.Extensions)
	setBool(v, "markdown.hard_wraps", &cfg.Markdown.HardWraps)
	setBool(v, "markdown.safe_mode", &cfg.Markdown.SafeMode)

	setInt(v, "crawl.workers", &cfg.Crawl.Workers)
	setInt(v, "crawl.max_depth", &cfg.Crawl.MaxDepth)

	setString(v, "logging.level", &cfg.Logging.Level)
	setString(v, "logging.format", &cfg.Logging.Format)
	setBool(v, "logging.add_source", &cfg.Logging.AddSource)
	setStrings(v, "logging.focus", &cfg.Logging.Focus)

	if l.debug || v.GetBool("debug") {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// readFile loads the YAML file. The default file is optional, one named with
// --config is not. Flat keys named after flags are folded into the nested
// layout.
func (l *configLoader) readFile() error {
	path := strings.TrimSpace(l.configFile)
	explicit := path != "" && path != md2quip.DefaultConfigFile
	if path == "" {
		path = md2quip.DefaultConfigFile
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")
	if err := l.v.ReadInConfig(); err != nil {
		return err
	}

	for flag, key := range flagKeys {
		flat := strings.ReplaceAll(flag, "-", "_")
		if l.v.InConfig(flat) && !l.v.InConfig(key) {
			l.v.SetDefault(key, l.v.Get(flat))
		}
	}
	return nil
}

func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setStrings(v *viper.Viper, key string, dst *[]string) {
	if v.IsSet(key) {
		*dst = v.GetStringSlice(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		*dst = v.GetDuration(key)
	}
}
