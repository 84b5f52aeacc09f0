package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const objectIDLength = 11

// UUID derives a deterministic UUID from a stable key using hashid.
//
// Keys must be prefixed by kind so folders and documents never collide.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// FolderID returns a store style identifier for a folder created from key.
func FolderID(key string) string {
	return objectID("md2quip:folder:" + key)
}

// ThreadID returns a store style identifier for a document created from key.
func ThreadID(key string) string {
	return objectID("md2quip:thread:" + key)
}

// SecretPath returns the one-way URL token for a folder id. It lives in a
// different identifier space from both folder and thread ids.
func SecretPath(folderID string) string {
	return objectID("md2quip:secret_path:" + folderID)
}

// RunID returns a random identifier used to correlate log entries of one
// CLI invocation.
func RunID() string {
	return uuid.NewString()
}

func objectID(key string) string {
	hex := strings.ReplaceAll(UUID(key).String(), "-", "")
	return strings.ToUpper(hex[:1]) + hex[1:objectIDLength]
}
