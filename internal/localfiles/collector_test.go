package localfiles

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, name := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte("# "+name+"\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func defaultConfig(root string) Config {
	return Config{
		Root:           root,
		Include:        []string{"*.md"},
		Exclude:        []string{".*", "/templates"},
		FollowSymlinks: true,
	}
}

func TestCollectOrdersFilesThenDirectories(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"README.md",
		"CHANGELOG.md",
		"main.go",
		"zeta/z.md",
		"alpha/b.md",
		"alpha/a.md",
		"alpha/nested/c.md",
		".git/HEAD.md",
		"templates/page.md",
		"docs/templates/kept.md",
	)

	got, err := NewCollector(defaultConfig(root)).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := []string{
		"CHANGELOG.md",
		"README.md",
		"alpha/a.md",
		"alpha/b.md",
		"alpha/nested/c.md",
		"docs/templates/kept.md",
		"zeta/z.md",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected files\n got: %v\nwant: %v", got, want)
	}
}

func TestCollectIsDeterministic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "b/one.md", "a/two.md", "c.md", "a/x/three.md")

	collector := NewCollector(defaultConfig(root))
	first, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	second, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical runs, got %v and %v", first, second)
	}
}

func TestCollectFollowsSymlinkedDirectoriesWithoutLooping(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "docs/guide.md")

	if err := os.Symlink(filepath.Join(root, "docs"), filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(root, filepath.Join(root, "docs", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := NewCollector(defaultConfig(root)).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := []string{"docs/guide.md", "linked/guide.md"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected files\n got: %v\nwant: %v", got, want)
	}
}

func TestCollectListsEveryAliasOfADirectory(t *testing.T) {
	shared := t.TempDir()
	writeTree(t, shared, "x.md")

	root := t.TempDir()
	for _, name := range []string{"a", "b"} {
		if err := os.Symlink(shared, filepath.Join(root, name)); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
	}

	got, err := NewCollector(defaultConfig(root)).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if want := []string{"a/x.md", "b/x.md"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected both aliases, got %v", got)
	}
}

func TestCollectPrunesAnchoredDirectoryBelowSymlink(t *testing.T) {
	outside := t.TempDir()
	writeTree(t, outside, "keep.md", "templates/page.md", "templates/deep/more.md", "nested/templates/kept.md")

	root := t.TempDir()
	writeTree(t, root, "templates/root.md", "local.md")
	if err := os.Symlink(outside, filepath.Join(root, "shared")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	cfg := defaultConfig(root)
	cfg.Exclude = append(cfg.Exclude, "/shared/templates")
	got, err := NewCollector(cfg).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := []string{"local.md", "shared/keep.md", "shared/nested/templates/kept.md"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected files\n got: %v\nwant: %v", got, want)
	}
}

func TestCollectSymlinkDisabled(t *testing.T) {
	outside := t.TempDir()
	writeTree(t, outside, "shared.md")

	root := t.TempDir()
	writeTree(t, root, "local.md")
	if err := os.Symlink(outside, filepath.Join(root, "shared")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	cfg := defaultConfig(root)
	cfg.FollowSymlinks = false
	got, err := NewCollector(cfg).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"local.md"}) {
		t.Fatalf("unexpected files %v", got)
	}

	cfg.FollowSymlinks = true
	got, err = NewCollector(cfg).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"local.md", "shared/shared.md"}) {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestCollectSkipsBrokenSymlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.md")
	if err := os.Symlink(filepath.Join(root, "missing.md"), filepath.Join(root, "b.md")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := NewCollector(defaultConfig(root)).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a.md"}) {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestCollectRejectsFileRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.md")

	_, err := NewCollector(defaultConfig(filepath.Join(root, "a.md"))).Collect(context.Background())
	if !errors.Is(err, ErrRootNotDirectory) {
		t.Fatalf("expected ErrRootNotDirectory, got %v", err)
	}
}

func TestCollectHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.md")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewCollector(defaultConfig(root)).Collect(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFileReadAndDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "docs/guide.md")

	files := Files(root, []string{"docs/guide.md"})
	if files[0].Dir() != "docs" {
		t.Fatalf("unexpected dir %q", files[0].Dir())
	}
	data, err := files[0].Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "# docs/guide.md\n" {
		t.Fatalf("unexpected content %q", data)
	}
}
