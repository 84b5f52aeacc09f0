package interfaces

import "context"

// DocumentStore is the remote collaborative document service md2quip mirrors
// local markdown into. Every call is a blocking network operation and honours
// ctx cancellation.
type DocumentStore interface {
	// GetFolder fetches a folder by id. Secret path tokens taken from a
	// folder URL are accepted as well.
	GetFolder(ctx context.Context, idOrToken string) (*Folder, error)
	GetThread(ctx context.Context, id string) (*Thread, error)
	NewDocument(ctx context.Context, req NewDocumentRequest) (*Thread, error)
	EditDocument(ctx context.Context, req EditDocumentRequest) (*Thread, error)
	GetAuthenticatedUser(ctx context.Context) (*User, error)
}

// Format selects how document content is interpreted by the store.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// EditLocation mirrors the store's insertion modes for edit-document.
type EditLocation int

const (
	LocationAppend EditLocation = iota
	LocationPrepend
	LocationAfterSection
	LocationBeforeSection
	LocationReplaceSection
	LocationDeleteSection
	LocationAfterDocumentRange
	LocationBeforeDocumentRange
	LocationReplaceDocumentRange
	LocationDeleteDocumentRange
	// LocationReplaceDocument is not part of the remote numbering; clients
	// translate it into a whole-body replacement.
	LocationReplaceDocument EditLocation = -1
)

// Folder is a typed remote folder record. ParentID is empty for a top-level
// folder.
type Folder struct {
	ID        string
	Title     string
	ParentID  string
	Color     string
	Link      string
	MemberIDs []string
	Children  []ChildRef
}

// ChildRef references either a sub-folder or a document. Exactly one of the
// two identifiers is set.
type ChildRef struct {
	FolderID string
	ThreadID string
}

// IsFolder reports whether the reference points at a sub-folder.
func (c ChildRef) IsFolder() bool { return c.FolderID != "" }

// IsThread reports whether the reference points at a document.
func (c ChildRef) IsThread() bool { return c.FolderID == "" && c.ThreadID != "" }

// Thread is a typed remote document record.
type Thread struct {
	ID              string
	Title           string
	Link            string
	Type            string
	HTML            string
	SharedFolderIDs []string
}

// NewDocumentRequest creates a document inside the folders listed in
// MemberIDs.
type NewDocumentRequest struct {
	Title     string
	Content   string
	Format    Format
	MemberIDs []string
}

// EditDocumentRequest changes the body of an existing document.
type EditDocumentRequest struct {
	ThreadID string
	Content  string
	Format   Format
	Location EditLocation
}

// User describes the account behind the access token.
type User struct {
	ID              string
	Name            string
	Emails          []string
	PrivateFolderID string
	SharedFolderIDs []string
}
