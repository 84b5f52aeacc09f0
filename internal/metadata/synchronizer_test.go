package metadata

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/simonmcc/md2quip/internal/crawler"
	"github.com/simonmcc/md2quip/internal/quip"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

func rootStore() *quip.MemoryStore {
	store := quip.NewMemoryStore()
	store.AddFolder(interfaces.Folder{
		ID:       "LUBAOAbA72T",
		Title:    "Mccartney",
		Children: []interfaces.ChildRef{{FolderID: "DVRAOArKRoo"}},
	})
	store.AddFolder(interfaces.Folder{ID: "DVRAOArKRoo", Title: "simonmcc", ParentID: "LUBAOAbA72T"})
	return store
}

func TestFindOrCreateReturnsExistingDocument(t *testing.T) {
	store := rootStore()
	manifest := NewManifest()
	manifest.Set("README.md", "aHTAAARyd1D")
	store.AddThread(interfaces.Thread{
		ID:              "FHcAAAgmJDW",
		Title:           MetadataTitle,
		HTML:            manifest.RenderHTML(),
		SharedFolderIDs: []string{"LUBAOAbA72T"},
	})
	store.AddFolder(interfaces.Folder{
		ID:       "LUBAOAbA72T",
		Title:    "Mccartney",
		Children: []interfaces.ChildRef{{FolderID: "DVRAOArKRoo"}, {ThreadID: "FHcAAAgmJDW"}},
	})

	record, err := New(store).FindOrCreate(context.Background(), "LUBAOAbA72T")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if record.ThreadID != "FHcAAAgmJDW" || record.Created {
		t.Fatalf("unexpected record %#v", record)
	}
	if id, _ := record.Manifest.Lookup("README.md"); id != "aHTAAARyd1D" {
		t.Fatalf("expected manifest entry, got %q", id)
	}
	if len(store.Created()) != 0 {
		t.Fatal("expected no document to be created")
	}
}

func TestFindOrCreatePrefersDocumentSharedIntoRoot(t *testing.T) {
	store := rootStore()
	store.AddThread(interfaces.Thread{ID: "AAA", Title: MetadataTitle, SharedFolderIDs: []string{"DVRAOArKRoo"}})
	store.AddThread(interfaces.Thread{ID: "ZZZ", Title: MetadataTitle, SharedFolderIDs: []string{"LUBAOAbA72T"}})
	store.AddFolder(interfaces.Folder{
		ID:       "LUBAOAbA72T",
		Title:    "Mccartney",
		Children: []interfaces.ChildRef{{FolderID: "DVRAOArKRoo"}, {ThreadID: "ZZZ"}},
	})
	store.AddFolder(interfaces.Folder{
		ID:       "DVRAOArKRoo",
		Title:    "simonmcc",
		ParentID: "LUBAOAbA72T",
		Children: []interfaces.ChildRef{{ThreadID: "AAA"}},
	})

	record, err := New(store).FindOrCreate(context.Background(), "LUBAOAbA72T")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if record.ThreadID != "ZZZ" {
		t.Fatalf("expected root document, got %s", record.ThreadID)
	}
}

func TestFindOrCreateCreatesMissingDocument(t *testing.T) {
	store := rootStore()
	sync := New(store)

	record, err := sync.FindOrCreate(context.Background(), "LUBAOAbA72T")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if !record.Created || record.Manifest.Len() != 0 {
		t.Fatalf("unexpected record %#v", record)
	}

	thread, ok := store.Thread(record.ThreadID)
	if !ok {
		t.Fatal("expected created document in store")
	}
	if thread.Title != MetadataTitle || !strings.Contains(thread.HTML, MetadataTitle) {
		t.Fatalf("unexpected document %#v", thread)
	}
	if len(thread.SharedFolderIDs) != 1 || thread.SharedFolderIDs[0] != "LUBAOAbA72T" {
		t.Fatalf("expected document shared into root, got %v", thread.SharedFolderIDs)
	}

	again, err := sync.FindOrCreate(context.Background(), "LUBAOAbA72T")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if again.Created || again.ThreadID != record.ThreadID {
		t.Fatalf("expected second run to find %s, got %#v", record.ThreadID, again)
	}
	if len(store.Created()) != 1 {
		t.Fatalf("expected a single creation, got %v", store.Created())
	}
}

func TestFindOrCreateCreationFailure(t *testing.T) {
	store := rootStore()
	store.DenyWrites("LUBAOAbA72T")

	_, err := New(store).FindOrCreate(context.Background(), "LUBAOAbA72T")
	if !errors.Is(err, ErrMetadataUnavailable) {
		t.Fatalf("expected ErrMetadataUnavailable, got %v", err)
	}
	if !quip.IsAccessDenied(err) {
		t.Fatalf("expected access denied cause, got %v", err)
	}
}

func TestFindOrCreateRefusesToCreateFromPartialCrawl(t *testing.T) {
	store := rootStore()
	store.AddThread(interfaces.Thread{ID: "FHcAAAgmJDW", Title: MetadataTitle, SharedFolderIDs: []string{"LUBAOAbA72T"}})
	store.AddFolder(interfaces.Folder{
		ID:       "LUBAOAbA72T",
		Title:    "Mccartney",
		Children: []interfaces.ChildRef{{FolderID: "DVRAOArKRoo"}, {ThreadID: "FHcAAAgmJDW"}},
	})
	store.Fail("FHcAAAgmJDW", http.StatusServiceUnavailable)

	_, err := New(store).FindOrCreate(context.Background(), "LUBAOAbA72T")
	if !errors.Is(err, ErrMetadataIncomplete) {
		t.Fatalf("expected ErrMetadataIncomplete, got %v", err)
	}
	if quip.StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected the fetch failure as cause, got %v", err)
	}
	if len(store.Created()) != 0 {
		t.Fatalf("expected no second metadata document, got %v", store.Created())
	}
}

func TestFindOrCreateRefusesWhenFolderFetchFails(t *testing.T) {
	store := rootStore()
	store.Deny("DVRAOArKRoo")

	_, err := New(store).FindOrCreate(context.Background(), "LUBAOAbA72T")
	if !errors.Is(err, ErrMetadataIncomplete) || !quip.IsAccessDenied(err) {
		t.Fatalf("expected ErrMetadataIncomplete caused by access denied, got %v", err)
	}
	if len(store.Created()) != 0 {
		t.Fatal("expected no document to be created")
	}
}

func TestFindOrCreateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(rootStore()).FindOrCreate(ctx, "LUBAOAbA72T")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLocateUsesExistingCrawl(t *testing.T) {
	store := rootStore()
	result, err := crawler.New(store).Crawl(context.Background(), "LUBAOAbA72T", crawler.Options{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	calls := store.TotalFolderCalls()

	if _, err := New(store).Locate(context.Background(), result, "LUBAOAbA72T"); err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if store.TotalFolderCalls() != calls {
		t.Fatal("expected Locate not to crawl again")
	}
}

func TestReplaceUpdaterSave(t *testing.T) {
	store := rootStore()
	sync := New(store)
	record, err := sync.FindOrCreate(context.Background(), "LUBAOAbA72T")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}

	manifest := NewManifest()
	manifest.Set("README.md", "aHTAAARyd1D")
	if err := sync.Save(context.Background(), record, manifest); err != nil {
		t.Fatalf("Save: %v", err)
	}

	edits := store.Edits()
	if len(edits) != 1 || edits[0].Location != interfaces.LocationReplaceDocument || edits[0].Format != interfaces.FormatHTML {
		t.Fatalf("unexpected edits %#v", edits)
	}
	thread, _ := store.Thread(record.ThreadID)
	if id, _ := ParseManifest(thread.HTML).Lookup("README.md"); id != "aHTAAARyd1D" {
		t.Fatalf("expected saved manifest, got %q", thread.HTML)
	}

	if err := sync.Save(context.Background(), record, manifest.Clone()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(store.Edits()) != 1 {
		t.Fatal("expected unchanged manifest not to be written")
	}
}

func TestReplaceUpdaterRequiresRecord(t *testing.T) {
	updater := NewReplaceUpdater(quip.NewMemoryStore(), nil)
	if err := updater.Save(context.Background(), nil, NewManifest()); err == nil {
		t.Fatal("expected error for missing record")
	}
}

func TestNoopUpdaterLeavesDocument(t *testing.T) {
	store := rootStore()
	sync := New(store, WithUpdater(NoopUpdater{}))
	record, err := sync.FindOrCreate(context.Background(), "LUBAOAbA72T")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	manifest := NewManifest()
	manifest.Set("README.md", "x")
	if err := sync.Save(context.Background(), record, manifest); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(store.Edits()) != 0 {
		t.Fatal("expected no edits")
	}
}

func TestFindDoesNotCreate(t *testing.T) {
	store := rootStore()
	result, err := crawler.New(store).Crawl(context.Background(), "LUBAOAbA72T", crawler.Options{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if _, ok := New(store).Find(result, "LUBAOAbA72T"); ok {
		t.Fatal("expected no metadata document")
	}
	if len(store.Created()) != 0 {
		t.Fatal("expected Find to leave the store untouched")
	}
}
