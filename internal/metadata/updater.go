package metadata

import (
	"context"
	"errors"

	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

var errRecordRequired = errors.New("metadata: record required")

// Updater writes a manifest back to an existing metadata document.
type Updater interface {
	Save(ctx context.Context, record *Record, manifest *Manifest) error
}

// ReplaceUpdater overwrites the metadata document body with the rendered
// manifest. Unchanged manifests are not written.
type ReplaceUpdater struct {
	store  interfaces.DocumentStore
	logger interfaces.Logger
}

// NewReplaceUpdater constructs a ReplaceUpdater.
func NewReplaceUpdater(store interfaces.DocumentStore, logger interfaces.Logger) *ReplaceUpdater {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &ReplaceUpdater{store: store, logger: logger}
}

func (u *ReplaceUpdater) Save(ctx context.Context, record *Record, manifest *Manifest) error {
	if record == nil || record.ThreadID == "" {
		return errRecordRequired
	}
	if manifest == nil {
		manifest = NewManifest()
	}
	logger := logging.WithFields(u.logger, map[string]any{"thread_id": record.ThreadID})

	if manifest.Equal(record.Manifest) {
		logger.Debug("metadata.save.unchanged", "entries", manifest.Len())
		return nil
	}

	if _, err := u.store.EditDocument(ctx, interfaces.EditDocumentRequest{
		ThreadID: record.ThreadID,
		Content:  manifest.RenderHTML(),
		Format:   interfaces.FormatHTML,
		Location: interfaces.LocationReplaceDocument,
	}); err != nil {
		logger.Error("metadata.save.failed", "error", err)
		return err
	}

	record.Manifest = manifest.Clone()
	logger.Info("metadata.saved", "entries", manifest.Len())
	return nil
}

// NoopUpdater logs the manifest and leaves the remote document untouched.
type NoopUpdater struct {
	Logger interfaces.Logger
}

func (u NoopUpdater) Save(_ context.Context, record *Record, manifest *Manifest) error {
	if record == nil {
		return errRecordRequired
	}
	logger := u.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	logger.Info("metadata.save.skipped", "thread_id", record.ThreadID, "entries", manifest.Len())
	return nil
}
