package quip

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/simonmcc/md2quip/pkg/interfaces"
)

type folderEnvelope struct {
	Folder    *folderRecord `json:"folder"`
	MemberIDs []string      `json:"member_ids"`
	Children  []childRecord `json:"children"`
}

type folderRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parent_id"`
	Color    string `json:"color"`
	Link     string `json:"link"`
}

type childRecord struct {
	FolderID string `json:"folder_id"`
	ThreadID string `json:"thread_id"`
}

type threadEnvelope struct {
	Thread          *threadRecord `json:"thread"`
	HTML            string        `json:"html"`
	SharedFolderIDs []string      `json:"shared_folder_ids"`
}

type threadRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
	Type  string `json:"type"`
}

type userRecord struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Emails          []string `json:"emails"`
	PrivateFolderID string   `json:"private_folder_id"`
	SharedFolderIDs []string `json:"shared_folder_ids"`
}

type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorCode        int    `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

func decodeFolder(body []byte) (*interfaces.Folder, error) {
	var env folderEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode folder: %w", err)
	}
	if env.Folder == nil || strings.TrimSpace(env.Folder.ID) == "" {
		return nil, fmt.Errorf("decode folder: record has no id")
	}

	folder := &interfaces.Folder{
		ID:        env.Folder.ID,
		Title:     env.Folder.Title,
		ParentID:  env.Folder.ParentID,
		Color:     env.Folder.Color,
		Link:      env.Folder.Link,
		MemberIDs: append([]string(nil), env.MemberIDs...),
	}
	for _, child := range env.Children {
		ref := interfaces.ChildRef{FolderID: child.FolderID, ThreadID: child.ThreadID}
		// Children carrying neither identifier cannot be visited.
		if !ref.IsFolder() && !ref.IsThread() {
			continue
		}
		folder.Children = append(folder.Children, ref)
	}
	return folder, nil
}

func decodeThread(body []byte) (*interfaces.Thread, error) {
	var env threadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode thread: %w", err)
	}
	if env.Thread == nil || strings.TrimSpace(env.Thread.ID) == "" {
		return nil, fmt.Errorf("decode thread: record has no id")
	}
	return &interfaces.Thread{
		ID:              env.Thread.ID,
		Title:           env.Thread.Title,
		Link:            env.Thread.Link,
		Type:            env.Thread.Type,
		HTML:            env.HTML,
		SharedFolderIDs: append([]string(nil), env.SharedFolderIDs...),
	}, nil
}

func decodeUser(body []byte) (*interfaces.User, error) {
	var rec userRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if strings.TrimSpace(rec.ID) == "" {
		return nil, fmt.Errorf("decode user: record has no id")
	}
	return &interfaces.User{
		ID:              rec.ID,
		Name:            rec.Name,
		Emails:          append([]string(nil), rec.Emails...),
		PrivateFolderID: rec.PrivateFolderID,
		SharedFolderIDs: append([]string(nil), rec.SharedFolderIDs...),
	}, nil
}

func decodeError(body []byte) errorEnvelope {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)
	return env
}
