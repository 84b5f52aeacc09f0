package runtimeconfig_test

import (
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/simonmcc/md2quip/internal/runtimeconfig"
)

func remoteConfig() runtimeconfig.Config {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Quip.AccessToken = "token"
	cfg.Quip.Root = "https://mccartney.quip.com/JGMmOeQyhKz7/Mccartney"
	return cfg
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
	if cfg.Quip.BaseURL != "https://platform.quip.com" {
		t.Fatalf("unexpected base url %q", cfg.Quip.BaseURL)
	}
	if cfg.Quip.RequestTimeout != 120*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Quip.RequestTimeout)
	}
	if len(cfg.Project.Exclude) != 2 || cfg.Project.Exclude[0] != ".*" || cfg.Project.Exclude[1] != "/templates" {
		t.Fatalf("unexpected exclude defaults %v", cfg.Project.Exclude)
	}
}

func TestValidateRemoteRequiresAccessToken(t *testing.T) {
	cfg := remoteConfig()
	cfg.Quip.AccessToken = " "

	err := cfg.ValidateRemote()
	if !errors.Is(err, runtimeconfig.ErrAccessTokenRequired) {
		t.Fatalf("expected ErrAccessTokenRequired, got %v", err)
	}
	if !runtimeconfig.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateRemoteRequiresRoot(t *testing.T) {
	cfg := remoteConfig()
	cfg.Quip.Root = ""

	err := cfg.ValidateRemote()
	if !errors.Is(err, runtimeconfig.ErrRootReferenceRequired) {
		t.Fatalf("expected ErrRootReferenceRequired, got %v", err)
	}
}

func TestValidateRemoteAcceptsCompleteConfig(t *testing.T) {
	if err := remoteConfig().ValidateRemote(); err != nil {
		t.Fatalf("ValidateRemote() returned unexpected error: %v", err)
	}
}

func TestValidateCredentialsIgnoresRoot(t *testing.T) {
	cfg := remoteConfig()
	cfg.Quip.Root = ""
	if err := cfg.ValidateCredentials(); err != nil {
		t.Fatalf("ValidateCredentials() returned unexpected error: %v", err)
	}

	cfg.Quip.AccessToken = ""
	if err := cfg.ValidateCredentials(); !errors.Is(err, runtimeconfig.ErrAccessTokenRequired) {
		t.Fatalf("expected ErrAccessTokenRequired, got %v", err)
	}
}

func TestValidateReportsFieldErrors(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*runtimeconfig.Config)
		field string
	}{
		{"relative base url", func(c *runtimeconfig.Config) { c.Quip.BaseURL = "/api" }, "quip.base_url"},
		{"unknown format", func(c *runtimeconfig.Config) { c.Publish.Format = "rtf" }, "publish.format"},
		{"zero workers", func(c *runtimeconfig.Config) { c.Crawl.Workers = 0 }, "crawl.workers"},
		{"negative depth", func(c *runtimeconfig.Config) { c.Crawl.MaxDepth = -1 }, "crawl.max_depth"},
		{"no include", func(c *runtimeconfig.Config) { c.Project.Include = nil }, "project.include"},
		{"bad level", func(c *runtimeconfig.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *runtimeconfig.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := remoteConfig()
			tc.mut(&cfg)

			err := cfg.Validate()
			if !runtimeconfig.IsConfigurationError(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}

			var typed *goerrors.Error
			if !goerrors.As(err, &typed) {
				t.Fatalf("expected go-errors error, got %T", err)
			}
			found := false
			for _, fe := range typed.ValidationErrors {
				if fe.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected field %s in %v", tc.field, typed.ValidationErrors)
			}
		})
	}
}

func TestRedactedHidesToken(t *testing.T) {
	cfg := remoteConfig()
	redacted := cfg.Redacted()
	if redacted.Quip.AccessToken != "****" {
		t.Fatalf("expected token to be redacted, got %q", redacted.Quip.AccessToken)
	}
	if cfg.Quip.AccessToken != "token" {
		t.Fatal("expected original config to be untouched")
	}
}
