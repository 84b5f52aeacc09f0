package quip

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/simonmcc/md2quip/internal/identity"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// MemoryStore is an in-memory DocumentStore. It counts every remote call and
// can be told to deny or fail individual ids, which makes it the reference
// stub for crawler and publisher tests.
type MemoryStore struct {
	mu       sync.Mutex
	folders  map[string]*interfaces.Folder
	threads  map[string]*interfaces.Thread
	aliases  map[string]string
	denied   map[string]int
	failures map[string]int
	readOnly map[string]struct{}
	user     *interfaces.User

	folderCalls map[string]int
	threadCalls map[string]int
	created     []string
	edits       []interfaces.EditDocumentRequest
	sequence    int

	// OnFetch, when set, runs before every folder or thread read with the
	// requested id. It is called without the store lock held.
	OnFetch func(id string)
}

var _ interfaces.DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		folders:     map[string]*interfaces.Folder{},
		threads:     map[string]*interfaces.Thread{},
		aliases:     map[string]string{},
		denied:      map[string]int{},
		failures:    map[string]int{},
		readOnly:    map[string]struct{}{},
		folderCalls: map[string]int{},
		threadCalls: map[string]int{},
	}
}

// AddFolder stores a copy of folder.
func (m *MemoryStore) AddFolder(folder interfaces.Folder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[folder.ID] = cloneFolder(&folder)
}

// AddThread stores a copy of thread.
func (m *MemoryStore) AddThread(thread interfaces.Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[thread.ID] = cloneThread(&thread)
}

// AddSecretPath makes token resolve to folderID in GetFolder.
func (m *MemoryStore) AddSecretPath(token, folderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[token] = folderID
}

// Deny makes every read of id fail with access denied.
func (m *MemoryStore) Deny(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[id] = http.StatusForbidden
}

// DenyWrites makes document creation in folder id, and edits of thread id,
// fail with access denied. Reads are unaffected.
func (m *MemoryStore) DenyWrites(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly[id] = struct{}{}
}

// Fail makes every read of id fail with a remote failure carrying status.
func (m *MemoryStore) Fail(id string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id] = status
}

// SetUser sets the account returned by GetAuthenticatedUser.
func (m *MemoryStore) SetUser(user interfaces.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &user
}

// FolderCalls returns how many times id was requested through GetFolder.
func (m *MemoryStore) FolderCalls(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.folderCalls[id]
}

// ThreadCalls returns how many times id was requested through GetThread.
func (m *MemoryStore) ThreadCalls(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threadCalls[id]
}

// TotalFolderCalls sums FolderCalls over every id.
func (m *MemoryStore) TotalFolderCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.folderCalls {
		total += n
	}
	return total
}

// Created lists the ids returned by NewDocument in call order.
func (m *MemoryStore) Created() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.created...)
}

// Edits lists the EditDocument requests in call order.
func (m *MemoryStore) Edits() []interfaces.EditDocumentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interfaces.EditDocumentRequest(nil), m.edits...)
}

// Thread returns a stored document without counting a call.
func (m *MemoryStore) Thread(id string) (*interfaces.Thread, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread, ok := m.threads[id]
	if !ok {
		return nil, false
	}
	return cloneThread(thread), true
}

// GetFolder implements interfaces.DocumentStore.
func (m *MemoryStore) GetFolder(ctx context.Context, idOrToken string) (*interfaces.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.OnFetch != nil {
		m.OnFetch(idOrToken)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.folderCalls[idOrToken]++
	id := idOrToken
	if target, ok := m.aliases[idOrToken]; ok {
		id = target
	}
	if err := m.injected(resourceFolder, id); err != nil {
		return nil, err
	}
	folder, ok := m.folders[id]
	if !ok {
		return nil, RemoteFailure(resourceFolder, idOrToken, http.StatusNotFound, nil, "no such folder")
	}
	return cloneFolder(folder), nil
}

// GetThread implements interfaces.DocumentStore.
func (m *MemoryStore) GetThread(ctx context.Context, id string) (*interfaces.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.OnFetch != nil {
		m.OnFetch(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threadCalls[id]++
	if err := m.injected(resourceThread, id); err != nil {
		return nil, err
	}
	thread, ok := m.threads[id]
	if !ok {
		return nil, RemoteFailure(resourceThread, id, http.StatusNotFound, nil, "no such thread")
	}
	return cloneThread(thread), nil
}

// NewDocument implements interfaces.DocumentStore. The document is linked
// into every member folder that exists in the store.
func (m *MemoryStore) NewDocument(ctx context.Context, req interfaces.NewDocumentRequest) (*interfaces.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, member := range req.MemberIDs {
		if err := m.writeInjected(resourceFolder, member); err != nil {
			return nil, err
		}
	}

	m.sequence++
	thread := &interfaces.Thread{
		ID:              identity.ThreadID(req.Title + "#" + strconv.Itoa(m.sequence)),
		Title:           req.Title,
		Type:            "document",
		HTML:            req.Content,
		SharedFolderIDs: append([]string(nil), req.MemberIDs...),
	}
	m.threads[thread.ID] = thread
	m.created = append(m.created, thread.ID)

	for _, member := range req.MemberIDs {
		if folder, ok := m.folders[member]; ok {
			folder.Children = append(folder.Children, interfaces.ChildRef{ThreadID: thread.ID})
		}
	}
	return cloneThread(thread), nil
}

// EditDocument implements interfaces.DocumentStore. Only whole-document
// replacement, append and prepend are supported.
func (m *MemoryStore) EditDocument(ctx context.Context, req interfaces.EditDocumentRequest) (*interfaces.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeInjected(resourceThread, req.ThreadID); err != nil {
		return nil, err
	}
	thread, ok := m.threads[req.ThreadID]
	if !ok {
		return nil, RemoteFailure(resourceThread, req.ThreadID, http.StatusNotFound, nil, "no such thread")
	}

	switch req.Location {
	case interfaces.LocationReplaceDocument:
		thread.HTML = req.Content
	case interfaces.LocationAppend:
		thread.HTML += req.Content
	case interfaces.LocationPrepend:
		thread.HTML = req.Content + thread.HTML
	default:
		return nil, RemoteFailure(resourceThread, req.ThreadID, http.StatusBadRequest, nil,
			fmt.Sprintf("unsupported location %d", req.Location))
	}
	m.edits = append(m.edits, req)
	return cloneThread(thread), nil
}

// GetAuthenticatedUser implements interfaces.DocumentStore.
func (m *MemoryStore) GetAuthenticatedUser(ctx context.Context) (*interfaces.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, RemoteFailure(resourceUser, "current", http.StatusUnauthorized, nil, "no authenticated user")
	}
	user := *m.user
	user.Emails = append([]string(nil), m.user.Emails...)
	user.SharedFolderIDs = append([]string(nil), m.user.SharedFolderIDs...)
	return &user, nil
}

func (m *MemoryStore) injected(resource, id string) error {
	if status, ok := m.denied[id]; ok {
		return AccessDenied(resource, id, status, "")
	}
	if status, ok := m.failures[id]; ok {
		return RemoteFailure(resource, id, status, nil, "injected failure")
	}
	return nil
}

func (m *MemoryStore) writeInjected(resource, id string) error {
	if _, ok := m.readOnly[id]; ok {
		return AccessDenied(resource, id, http.StatusForbidden, "read only")
	}
	return m.injected(resource, id)
}

func cloneFolder(folder *interfaces.Folder) *interfaces.Folder {
	out := *folder
	out.MemberIDs = append([]string(nil), folder.MemberIDs...)
	out.Children = append([]interfaces.ChildRef(nil), folder.Children...)
	return &out
}

func cloneThread(thread *interfaces.Thread) *interfaces.Thread {
	out := *thread
	out.SharedFolderIDs = append([]string(nil), thread.SharedFolderIDs...)
	return &out
}
