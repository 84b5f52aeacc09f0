package synccmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	listFoldersMessageType    = "md2quip.sync.list_folders"
	listLocalFilesMessageType = "md2quip.sync.list_local_files"
	publishMessageType        = "md2quip.sync.publish"
	whoAmIMessageType         = "md2quip.sync.whoami"
)

// ListFoldersCommand prints the remote folder tree below the root.
type ListFoldersCommand struct {
	// RootReference is the folder URL or secret path of the remote root.
	RootReference string `json:"root_reference"`
	// IncludeDocuments also lists the documents of every folder.
	IncludeDocuments bool `json:"include_documents,omitempty"`
}

// Type implements command.Message.
func (ListFoldersCommand) Type() string { return listFoldersMessageType }

// Validate requires a root reference.
func (cmd ListFoldersCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.RootReference, validation.By(requiredText("md2quip.sync.root_reference_required", "root reference is required"))),
	)
}

// ListLocalFilesCommand prints the files that would be published.
type ListLocalFilesCommand struct {
	ProjectRoot string `json:"project_root"`
}

// Type implements command.Message.
func (ListLocalFilesCommand) Type() string { return listLocalFilesMessageType }

// Validate requires a project root.
func (cmd ListLocalFilesCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.ProjectRoot, validation.By(requiredText("md2quip.sync.project_root_required", "project root is required"))),
	)
}

// PublishCommand publishes the project's files into the remote root.
type PublishCommand struct {
	RootReference string `json:"root_reference"`
	ProjectRoot   string `json:"project_root"`
	// AtRoot places every document in the root folder.
	AtRoot bool `json:"at_root,omitempty"`
	// DryRun reports the planned actions without remote writes.
	DryRun bool `json:"dry_run,omitempty"`
}

// Type implements command.Message.
func (PublishCommand) Type() string { return publishMessageType }

// Validate requires both the remote and the local root.
func (cmd PublishCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.RootReference, validation.By(requiredText("md2quip.sync.root_reference_required", "root reference is required"))),
		validation.Field(&cmd.ProjectRoot, validation.By(requiredText("md2quip.sync.project_root_required", "project root is required"))),
	)
}

// WhoAmICommand prints the account behind the access token.
type WhoAmICommand struct{}

// Type implements command.Message.
func (WhoAmICommand) Type() string { return whoAmIMessageType }

// Validate always succeeds.
func (WhoAmICommand) Validate() error { return nil }

func requiredText(code, message string) validation.RuleFunc {
	return func(value any) error {
		text, _ := value.(string)
		if strings.TrimSpace(text) == "" {
			return validation.NewError(code, message)
		}
		return nil
	}
}
