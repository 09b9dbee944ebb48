// Package gitlab defines the GitLab entities collected by the tool and the
// typed fetchers that read them from the API.
package gitlab

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate checks decoded entities against their schema tags. Decode
// functions never silently coerce; anything failing validation is rejected.
var validate = validator.New()

// User is the subset of GitLab user metadata carried on records.
type User struct {
	ID        int    `json:"id" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Group holds group details used to scope project discovery.
type Group struct {
	ID       int    `json:"id" validate:"required"`
	FullPath string `json:"full_path" validate:"required"`
	Name     string `json:"name" validate:"required"`
	WebURL   string `json:"web_url,omitempty"`
}

// Project is the project metadata returned from the group projects endpoint.
type Project struct {
	ID                int    `json:"id" validate:"required"`
	PathWithNamespace string `json:"path_with_namespace" validate:"required"`
	Name              string `json:"name" validate:"required"`
	WebURL            string `json:"web_url,omitempty"`
	DefaultBranch     string `json:"default_branch,omitempty"`
}

// MergeRequest carries the core merge request fields required downstream.
type MergeRequest struct {
	ID           int        `json:"id" validate:"required"`
	IID          int        `json:"iid" validate:"required"`
	ProjectID    int        `json:"project_id" validate:"required"`
	Title        string     `json:"title" validate:"required"`
	State        string     `json:"state" validate:"required"`
	CreatedAt    time.Time  `json:"created_at" validate:"required"`
	UpdatedAt    time.Time  `json:"updated_at" validate:"required"`
	MergedAt     *time.Time `json:"merged_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	WebURL       string     `json:"web_url,omitempty"`
	Author       User       `json:"author"`
	Assignees    []User     `json:"assignees,omitempty" validate:"dive"`
	Reviewers    []User     `json:"reviewers,omitempty" validate:"dive"`
	SourceBranch string     `json:"source_branch,omitempty"`
	TargetBranch string     `json:"target_branch,omitempty"`
}

// Note is an individual note on a merge request. System notes carry the
// system flag and must not count as human comments downstream.
type Note struct {
	ID        int        `json:"id" validate:"required"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at" validate:"required"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	System    bool       `json:"system"`
	Author    User       `json:"author"`
}

// Discussion is a merge request discussion thread containing one or more notes.
type Discussion struct {
	ID             string `json:"id" validate:"required"`
	IndividualNote bool   `json:"individual_note"`
	Notes          []Note `json:"notes" validate:"dive"`
}

// ReviewerState is the reviewer approval state from the reviewers endpoint.
type ReviewerState struct {
	ID    int    `json:"id" validate:"required"`
	State string `json:"state" validate:"required"`
	User  *User  `json:"user,omitempty"`
}

// Record is the composite persisted in the cache for one merge request.
// Extras is an open extension map preserved verbatim through decode/encode
// round-trips and never interpreted here.
type Record struct {
	Project      Project                    `json:"project"`
	MergeRequest MergeRequest               `json:"merge_request"`
	Discussions  []Discussion               `json:"discussions" validate:"dive"`
	Notes        []Note                     `json:"notes" validate:"dive"`
	Reviewers    []ReviewerState            `json:"reviewers" validate:"dive"`
	Extras       map[string]json.RawMessage `json:"extras,omitempty"`
}

// RecordKey is the composite identity of a record: the pair of project id
// and per-project merge request iid.
type RecordKey struct {
	ProjectID int
	IID       int
}

// Key returns the composite cache key for the record.
func (r Record) Key() RecordKey {
	return RecordKey{ProjectID: r.MergeRequest.ProjectID, IID: r.MergeRequest.IID}
}

// String renders the key in the project_id#iid form used in logs.
func (k RecordKey) String() string {
	return fmt.Sprintf("%d#%d", k.ProjectID, k.IID)
}

// DecodeGroup decodes and validates a group payload.
func DecodeGroup(data []byte) (Group, error) {
	var group Group
	if err := json.Unmarshal(data, &group); err != nil {
		return Group{}, fmt.Errorf("decode group: %w", err)
	}
	if err := validate.Struct(group); err != nil {
		return Group{}, fmt.Errorf("validate group: %w", err)
	}
	return group, nil
}

// DecodeProject decodes and validates a project payload.
func DecodeProject(data []byte) (Project, error) {
	var project Project
	if err := json.Unmarshal(data, &project); err != nil {
		return Project{}, fmt.Errorf("decode project: %w", err)
	}
	if err := validate.Struct(project); err != nil {
		return Project{}, fmt.Errorf("validate project: %w", err)
	}
	return project, nil
}

// DecodeMergeRequest decodes and validates a merge request payload.
func DecodeMergeRequest(data []byte) (MergeRequest, error) {
	var mr MergeRequest
	if err := json.Unmarshal(data, &mr); err != nil {
		return MergeRequest{}, fmt.Errorf("decode merge request: %w", err)
	}
	if err := validate.Struct(mr); err != nil {
		return MergeRequest{}, fmt.Errorf("validate merge request: %w", err)
	}
	return mr, nil
}

// DecodeNote decodes and validates a note payload.
func DecodeNote(data []byte) (Note, error) {
	var note Note
	if err := json.Unmarshal(data, &note); err != nil {
		return Note{}, fmt.Errorf("decode note: %w", err)
	}
	if err := validate.Struct(note); err != nil {
		return Note{}, fmt.Errorf("validate note: %w", err)
	}
	return note, nil
}

// DecodeDiscussion decodes and validates a discussion payload.
func DecodeDiscussion(data []byte) (Discussion, error) {
	var discussion Discussion
	if err := json.Unmarshal(data, &discussion); err != nil {
		return Discussion{}, fmt.Errorf("decode discussion: %w", err)
	}
	if err := validate.Struct(discussion); err != nil {
		return Discussion{}, fmt.Errorf("validate discussion: %w", err)
	}
	return discussion, nil
}

// DecodeReviewerState decodes and validates a reviewer state payload.
func DecodeReviewerState(data []byte) (ReviewerState, error) {
	var state ReviewerState
	if err := json.Unmarshal(data, &state); err != nil {
		return ReviewerState{}, fmt.Errorf("decode reviewer state: %w", err)
	}
	if err := validate.Struct(state); err != nil {
		return ReviewerState{}, fmt.Errorf("validate reviewer state: %w", err)
	}
	return state, nil
}

// DecodeRecord decodes and validates a full cached record.
func DecodeRecord(data []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if err := validate.Struct(record); err != nil {
		return Record{}, fmt.Errorf("validate record: %w", err)
	}
	return record, nil
}
