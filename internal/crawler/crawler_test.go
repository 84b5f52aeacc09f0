package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/simonmcc/md2quip/internal/quip"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

func folderRefs(ids ...string) []interfaces.ChildRef {
	refs := make([]interfaces.ChildRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, interfaces.ChildRef{FolderID: id})
	}
	return refs
}

func newStore(folders ...interfaces.Folder) *quip.MemoryStore {
	store := quip.NewMemoryStore()
	for _, f := range folders {
		store.AddFolder(f)
	}
	return store
}

// fixtureStore mirrors a small real workspace: a root folder, a personal
// folder below it and a project folder below that.
func fixtureStore() *quip.MemoryStore {
	store := newStore(
		interfaces.Folder{
			ID:    "LUBAOAbA72T",
			Title: "Mccartney",
			Children: []interfaces.ChildRef{
				{FolderID: "DVRAOArKRoo"},
				{ThreadID: "FHcAAAgmJDW"},
			},
		},
		interfaces.Folder{
			ID:       "DVRAOArKRoo",
			Title:    "simonmcc",
			ParentID: "LUBAOAbA72T",
			Children: []interfaces.ChildRef{
				{FolderID: "TdIAOAZPeNB"},
				{ThreadID: "aHTAAARyd1D"},
			},
		},
		interfaces.Folder{
			ID:       "TdIAOAZPeNB",
			Title:    "md2quip",
			ParentID: "DVRAOArKRoo",
			Children: []interfaces.ChildRef{
				{ThreadID: "IYCAAAcDu8x"},
				{ThreadID: "aHTAAARyd1D"},
			},
		},
	)
	store.AddThread(interfaces.Thread{ID: "FHcAAAgmJDW", Title: ".md2quip metadata", SharedFolderIDs: []string{"LUBAOAbA72T"}})
	store.AddThread(interfaces.Thread{ID: "aHTAAARyd1D", Title: "README", SharedFolderIDs: []string{"DVRAOArKRoo", "TdIAOAZPeNB"}})
	store.AddThread(interfaces.Thread{ID: "IYCAAAcDu8x", Title: "CHANGELOG", SharedFolderIDs: []string{"TdIAOAZPeNB"}})
	return store
}

func TestCrawlReconstructsPaths(t *testing.T) {
	store := newStore(
		interfaces.Folder{ID: "A_id", Title: "A", Children: folderRefs("B_id")},
		interfaces.Folder{ID: "B_id", Title: "B", ParentID: "A_id"},
	)

	result, err := New(store).Crawl(context.Background(), "A_id", Options{})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	want := map[string]string{"A": "A_id", "A/B": "B_id"}
	if !reflect.DeepEqual(result.Paths, want) {
		t.Fatalf("expected paths %v, got %v", want, result.Paths)
	}
	if !result.Complete() {
		t.Fatalf("expected complete crawl, skipped %v", result.Skipped)
	}
}

func TestCrawlFixtureWithDocuments(t *testing.T) {
	store := fixtureStore()

	result, err := New(store).Crawl(context.Background(), "LUBAOAbA72T", Options{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	wantPaths := []string{"Mccartney", "Mccartney/simonmcc", "Mccartney/simonmcc/md2quip"}
	if got := result.SortedPaths(); !reflect.DeepEqual(got, wantPaths) {
		t.Fatalf("expected paths %v, got %v", wantPaths, got)
	}
	if len(result.Threads) != 3 {
		t.Fatalf("expected three documents, got %d", len(result.Threads))
	}
	if store.ThreadCalls("aHTAAARyd1D") != 1 {
		t.Fatalf("expected shared document to be fetched once, got %d", store.ThreadCalls("aHTAAARyd1D"))
	}
	if found := result.ThreadsByTitle(".md2quip metadata"); len(found) != 1 || found[0].ID != "FHcAAAgmJDW" {
		t.Fatalf("unexpected title lookup %v", found)
	}
	if result.PathOf("TdIAOAZPeNB") != "Mccartney/simonmcc/md2quip" {
		t.Fatalf("unexpected path for md2quip folder: %q", result.PathOf("TdIAOAZPeNB"))
	}
}

func TestCrawlWithoutDocumentsSkipsThreadFetches(t *testing.T) {
	store := fixtureStore()

	result, err := New(store).Crawl(context.Background(), "LUBAOAbA72T", Options{})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(result.Threads) != 0 || store.ThreadCalls("aHTAAARyd1D") != 0 {
		t.Fatal("expected no document fetches")
	}
}

func TestCrawlFetchesSharedFolderOnce(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			folders := []interfaces.Folder{{ID: "root", Title: "root"}}
			for i := 0; i < 10; i++ {
				id := fmt.Sprintf("branch-%d", i)
				folders[0].Children = append(folders[0].Children, interfaces.ChildRef{FolderID: id})
				folders = append(folders, interfaces.Folder{ID: id, Title: id, ParentID: "root", Children: folderRefs("shared")})
			}
			folders = append(folders, interfaces.Folder{ID: "shared", Title: "shared", ParentID: "branch-0"})

			store := newStore(folders...)
			store.OnFetch = func(string) { time.Sleep(time.Millisecond) }

			result, err := New(store).Crawl(context.Background(), "root", Options{Workers: workers})
			if err != nil {
				t.Fatalf("Crawl: %v", err)
			}
			if got := store.FolderCalls("shared"); got != 1 {
				t.Fatalf("expected shared folder to be fetched once, got %d", got)
			}
			if store.TotalFolderCalls() != len(folders) {
				t.Fatalf("expected %d fetches, got %d", len(folders), store.TotalFolderCalls())
			}
			if len(result.Folders) != len(folders) {
				t.Fatalf("expected %d cached folders, got %d", len(folders), len(result.Folders))
			}
		})
	}
}

func TestCrawlTerminatesOnCycles(t *testing.T) {
	store := newStore(
		interfaces.Folder{ID: "A", Title: "A", Children: folderRefs("B", "A")},
		interfaces.Folder{ID: "B", Title: "B", ParentID: "A", Children: folderRefs("C")},
		interfaces.Folder{ID: "C", Title: "C", ParentID: "B", Children: folderRefs("A", "B")},
	)

	result, err := New(store).Crawl(context.Background(), "A", Options{})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	for _, id := range []string{"A", "B", "C"} {
		if store.FolderCalls(id) != 1 {
			t.Fatalf("expected %s to be fetched once, got %d", id, store.FolderCalls(id))
		}
	}
	if result.PathOf("C") != "A/B/C" {
		t.Fatalf("unexpected path %q", result.PathOf("C"))
	}
}

func TestCrawlTerminatesOnParentChainCycle(t *testing.T) {
	store := newStore(
		interfaces.Folder{ID: "A", Title: "A", ParentID: "B", Children: folderRefs("B")},
		interfaces.Folder{ID: "B", Title: "B", ParentID: "A"},
	)

	result, err := New(store).Crawl(context.Background(), "A", Options{})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if result.PathOf("B") != "A/B" {
		t.Fatalf("unexpected path %q", result.PathOf("B"))
	}
}

func TestCrawlIsIdempotent(t *testing.T) {
	store := fixtureStore()
	crawler := New(store)

	first, err := crawler.Crawl(context.Background(), "LUBAOAbA72T", Options{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	second, err := crawler.Crawl(context.Background(), "LUBAOAbA72T", Options{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if !reflect.DeepEqual(first.Folders, second.Folders) {
		t.Fatal("expected identical folder caches")
	}
	if !reflect.DeepEqual(first.Threads, second.Threads) {
		t.Fatal("expected identical document caches")
	}
	if !reflect.DeepEqual(first.Paths, second.Paths) {
		t.Fatal("expected identical path caches")
	}
}

func TestCrawlIsolatesAccessDeniedBranch(t *testing.T) {
	store := newStore(
		interfaces.Folder{ID: "root", Title: "Root", Children: folderRefs("denied", "open")},
		interfaces.Folder{ID: "denied", Title: "Secret", ParentID: "root", Children: folderRefs("hidden")},
		interfaces.Folder{ID: "hidden", Title: "Hidden", ParentID: "denied"},
		interfaces.Folder{ID: "open", Title: "Open", ParentID: "root", Children: folderRefs("leaf")},
		interfaces.Folder{ID: "leaf", Title: "Leaf", ParentID: "open"},
	)
	store.Deny("denied")

	result, err := New(store).Crawl(context.Background(), "root", Options{})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if result.PathOf("leaf") != "Root/Open/Leaf" {
		t.Fatalf("expected sibling branch to be crawled, got %q", result.PathOf("leaf"))
	}
	if !result.Visited("denied") {
		t.Fatal("expected denied folder to stay in the folder cache")
	}
	if !result.Folders["denied"].Placeholder() {
		t.Fatal("expected denied folder to remain a placeholder")
	}
	if _, ok := result.Paths["Root/Secret"]; ok {
		t.Fatal("expected denied folder to have no path")
	}
	if result.Visited("hidden") {
		t.Fatal("expected denied subtree to be pruned")
	}

	if result.Complete() || len(result.Skipped) != 1 {
		t.Fatalf("expected one skipped branch, got %v", result.Skipped)
	}
	skip := result.Skipped[0]
	if skip.ID != "denied" || skip.Kind != SkipFolder || skip.Depth != 1 || skip.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected skip %#v", skip)
	}
	if skip.Code != quip.TextCodeAccessDenied {
		t.Fatalf("unexpected skip code %q", skip.Code)
	}
}

func TestCrawlIsolatesRemoteFailures(t *testing.T) {
	store := fixtureStore()
	store.Fail("TdIAOAZPeNB", http.StatusBadGateway)
	store.Fail("FHcAAAgmJDW", http.StatusInternalServerError)

	result, err := New(store).Crawl(context.Background(), "LUBAOAbA72T", Options{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if got := result.SortedPaths(); !reflect.DeepEqual(got, []string{"Mccartney", "Mccartney/simonmcc"}) {
		t.Fatalf("unexpected paths %v", got)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("expected two skips, got %v", result.Skipped)
	}
	if result.Skipped[0].ID != "FHcAAAgmJDW" || result.Skipped[0].Kind != SkipDocument {
		t.Fatalf("unexpected first skip %#v", result.Skipped[0])
	}
	if result.Skipped[1].ID != "TdIAOAZPeNB" || result.Skipped[1].StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected second skip %#v", result.Skipped[1])
	}

	again, _ := New(store).Crawl(context.Background(), "LUBAOAbA72T", Options{IncludeDocuments: true})
	if len(again.Skipped) != 2 {
		t.Fatal("expected failures to be reported on every crawl")
	}
}

func TestResultReportsUnresolvedDocuments(t *testing.T) {
	store := fixtureStore()
	complete, err := New(store).Crawl(context.Background(), "LUBAOAbA72T", Options{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if complete.Partial() || complete.Unresolved("gone") || complete.FirstFailure() != nil {
		t.Fatal("expected a complete crawl to settle every lookup")
	}

	store.Fail("TdIAOAZPeNB", http.StatusBadGateway)
	store.Fail("FHcAAAgmJDW", http.StatusServiceUnavailable)
	partial, err := New(store).Crawl(context.Background(), "LUBAOAbA72T", Options{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if !partial.Partial() {
		t.Fatal("expected failed fetches to mark the crawl partial")
	}
	if quip.StatusCode(partial.FirstFailure()) != http.StatusServiceUnavailable {
		t.Fatalf("expected first failure to be the document fetch, got %v", partial.FirstFailure())
	}
	if partial.Unresolved("aHTAAARyd1D") {
		t.Fatal("expected fetched document to be resolved")
	}
	for _, id := range []string{"FHcAAAgmJDW", "IYCAAAcDu8x", "gone"} {
		if !partial.Unresolved(id) {
			t.Fatalf("expected %s to be unresolved", id)
		}
	}
}

func TestResultDepthSkipsAreNotPartial(t *testing.T) {
	store := newStore(
		interfaces.Folder{ID: "A", Title: "A", Children: folderRefs("B")},
		interfaces.Folder{ID: "B", Title: "B", ParentID: "A", Children: folderRefs("C")},
		interfaces.Folder{ID: "C", Title: "C", ParentID: "B"},
	)
	result, err := New(store).Crawl(context.Background(), "A", Options{MaxDepth: 1})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if result.Complete() || result.Partial() {
		t.Fatal("expected depth skips not to count as failures")
	}
	if !result.Unresolved("anything") {
		t.Fatal("expected documents below the depth limit to be unresolved")
	}
}

func TestCrawlPathStopsAtUnvisitedParent(t *testing.T) {
	store := newStore(
		interfaces.Folder{ID: "A", Title: "A", Children: folderRefs("B")},
		interfaces.Folder{ID: "B", Title: "B", ParentID: "A", Children: folderRefs("C")},
		interfaces.Folder{ID: "C", Title: "", ParentID: "B"},
	)

	result, err := New(store).Crawl(context.Background(), "B", Options{})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	want := map[string]string{"B": "B", "B/Folder C": "C"}
	if !reflect.DeepEqual(result.Paths, want) {
		t.Fatalf("expected %v, got %v", want, result.Paths)
	}
	if store.FolderCalls("A") != 0 {
		t.Fatal("expected path reconstruction to avoid remote calls")
	}
}

func TestCrawlMaxDepth(t *testing.T) {
	store := newStore(
		interfaces.Folder{ID: "A", Title: "A", Children: folderRefs("B")},
		interfaces.Folder{ID: "B", Title: "B", ParentID: "A", Children: folderRefs("C")},
		interfaces.Folder{ID: "C", Title: "C", ParentID: "B"},
	)

	result, err := New(store).Crawl(context.Background(), "A", Options{MaxDepth: 1})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if result.Visited("C") || store.FolderCalls("C") != 0 {
		t.Fatal("expected folder below max depth to be left alone")
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Kind != SkipDepth || result.Skipped[0].ID != "C" {
		t.Fatalf("unexpected skips %v", result.Skipped)
	}
}

func TestCrawlCancellation(t *testing.T) {
	store := fixtureStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.OnFetch = func(id string) {
		if id == "DVRAOArKRoo" {
			cancel()
		}
	}

	result, err := New(store).Crawl(ctx, "LUBAOAbA72T", Options{IncludeDocuments: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("expected partial result")
	}
	if result.Visited("TdIAOAZPeNB") {
		t.Fatal("expected crawl to stop descending after cancellation")
	}
	for path, id := range result.Paths {
		if result.Folders[id].Placeholder() {
			t.Fatalf("path %q points at an unresolved folder", path)
		}
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("expected cancellation not to be reported as skipped branches, got %v", result.Skipped)
	}
}
