// Package resolver turns a user facing folder URL into a folder id.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

const TextCodeResolutionFailed = "ROOT_RESOLUTION_FAILED"

// Resolver looks up the folder behind a root reference.
type Resolver struct {
	store  interfaces.DocumentStore
	logger interfaces.Logger
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Resolver.
func New(store interfaces.DocumentStore, opts ...Option) *Resolver {
	r := &Resolver{store: store, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// SecretPath extracts the lookup token from ref: the second segment of the
// parsed URL path. For https://example.quip.com/JGMmOeQyhKz7/Team the token
// is JGMmOeQyhKz7.
func SecretPath(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", resolutionError(ref, "unparseable root reference", err)
	}

	segments := strings.Split(u.Path, "/")
	if len(segments) < 2 {
		return "", resolutionError(ref, "root reference has fewer than two path segments", nil)
	}
	token := strings.TrimSpace(segments[1])
	if token == "" {
		return "", resolutionError(ref, "root reference has an empty secret path", nil)
	}
	return token, nil
}

// Resolve returns the folder id for ref. The id comes from the fetched
// record and is never the token itself.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	token, err := SecretPath(ref)
	if err != nil {
		return "", err
	}

	folder, err := r.store.GetFolder(ctx, token)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		r.logger.Error("resolver.lookup.failed", "reference", ref, "error", err)
		return "", resolutionError(ref, "folder lookup failed", err)
	}
	if folder == nil || strings.TrimSpace(folder.ID) == "" {
		return "", resolutionError(ref, "folder lookup returned no id", nil)
	}

	r.logger.Debug("resolver.lookup.completed", "reference", ref, "folder_id", folder.ID, "title", folder.Title)
	return folder.ID, nil
}

// IsResolutionError reports whether err came from Resolve or SecretPath.
func IsResolutionError(err error) bool {
	var e *goerrors.Error
	return goerrors.As(err, &e) && e.TextCode == TextCodeResolutionFailed
}

func resolutionError(ref, reason string, cause error) error {
	err := goerrors.New(fmt.Sprintf("resolve root %q: %s", ref, reason), goerrors.CategoryNotFound).
		WithTextCode(TextCodeResolutionFailed).
		WithMetadata(map[string]any{"reference": ref})
	err.Source = cause
	return err
}
