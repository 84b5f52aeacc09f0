// Package localfiles discovers the markdown files under a project root.
package localfiles

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/internal/pathfilter"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

var ErrRootNotDirectory = errors.New("localfiles: project root is not a directory")

// Config selects the files a Collector returns.
type Config struct {
	Root           string
	Include        []string
	Exclude        []string
	FollowSymlinks bool
}

// Collector walks a project root depth-first. It keeps no state between
// Collect calls.
type Collector struct {
	root           string
	include        []string
	exclude        []string
	followSymlinks bool
	logger         interfaces.Logger
}

// Option customises a Collector.
type Option func(*Collector)

// WithLogger sets the logger used for skipped entries.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCollector builds a Collector from cfg.
func NewCollector(cfg Config, opts ...Option) *Collector {
	root := cfg.Root
	if root == "" {
		root = "."
	}
	c := &Collector{
		root:           filepath.Clean(root),
		include:        append([]string(nil), cfg.Include...),
		exclude:        append([]string(nil), cfg.Exclude...),
		followSymlinks: cfg.FollowSymlinks,
		logger:         logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Root returns the directory the collector walks.
func (c *Collector) Root() string {
	return c.root
}

// Collect returns slash separated paths relative to the root. Within a
// directory files come first in name order, then sub-directories are visited
// in name order. Excluded directories are pruned before descending.
func (c *Collector) Collect(ctx context.Context) ([]string, error) {
	info, err := os.Stat(c.root)
	if err != nil {
		return nil, fmt.Errorf("localfiles: stat %s: %w", c.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, c.root)
	}

	w := &walk{
		collector: c,
		ancestors: map[string]struct{}{},
	}
	if err := w.dir(ctx, c.root, "."); err != nil {
		return nil, err
	}

	c.logger.Debug("localfiles.collect.completed", "root", c.root, "count", len(w.files))
	return w.files, nil
}

// walk holds the state of one Collect call. ancestors holds the resolved
// directories on the current descent path, so a link back into one of them
// is a cycle while two links to the same directory are both listed.
type walk struct {
	collector *Collector
	ancestors map[string]struct{}
	files     []string
}

func (w *walk) dir(ctx context.Context, abs, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fmt.Errorf("localfiles: resolve %s: %w", abs, err)
	}
	if _, cycle := w.ancestors[resolved]; cycle {
		w.collector.logger.Warn("localfiles.symlink.cycle", "path", rel, "target", resolved)
		return nil
	}
	w.ancestors[resolved] = struct{}{}
	defer delete(w.ancestors, resolved)

	entries, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("localfiles: read %s: %w", abs, err)
	}

	var files, dirs []string
	for _, entry := range entries {
		name := entry.Name()
		entryRel := path.Join(rel, name)

		isDir, ok := w.classify(abs, entry, entryRel)
		if !ok {
			continue
		}

		if isDir {
			if pathfilter.IsExcluded(name, entryRel, true, w.collector.exclude) {
				continue
			}
			dirs = append(dirs, name)
			continue
		}

		if pathfilter.IsIncluded(name, entryRel, w.collector.include) {
			files = append(files, entryRel)
		}
	}

	sort.Strings(files)
	sort.Strings(dirs)
	w.files = append(w.files, files...)

	for _, name := range dirs {
		if err := w.dir(ctx, filepath.Join(abs, name), path.Join(rel, name)); err != nil {
			return err
		}
	}
	return nil
}

// classify resolves symlinks. ok is false for entries that should be ignored
// entirely, such as broken links or links to directories when following is
// disabled.
func (w *walk) classify(abs string, entry fs.DirEntry, rel string) (isDir bool, ok bool) {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir(), entry.IsDir() || entry.Type().IsRegular()
	}

	target, err := os.Stat(filepath.Join(abs, entry.Name()))
	if err != nil {
		w.collector.logger.Debug("localfiles.symlink.broken", "path", rel, "error", err)
		return false, false
	}
	if target.IsDir() {
		return true, w.collector.followSymlinks
	}
	return false, target.Mode().IsRegular()
}
