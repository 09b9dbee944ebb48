package gitlab

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mergeRequestJSON = `{
	"id": 1001,
	"iid": 7,
	"project_id": 42,
	"title": "Add widget pipeline",
	"state": "merged",
	"created_at": "2024-03-01T10:00:00Z",
	"updated_at": "2024-03-05T16:30:00Z",
	"merged_at": "2024-03-05T16:30:00Z",
	"web_url": "https://gitlab.example.com/acme/widget/-/merge_requests/7",
	"author": {"id": 5, "username": "jdoe", "name": "J. Doe"},
	"assignees": [{"id": 5, "username": "jdoe"}],
	"reviewers": [{"id": 9, "username": "reviewer1"}],
	"source_branch": "feature/widget",
	"target_branch": "main"
}`

func TestDecodeMergeRequest(t *testing.T) {
	mr, err := DecodeMergeRequest([]byte(mergeRequestJSON))
	require.NoError(t, err)

	assert.Equal(t, 1001, mr.ID)
	assert.Equal(t, 7, mr.IID)
	assert.Equal(t, 42, mr.ProjectID)
	assert.Equal(t, "merged", mr.State)
	assert.Equal(t, "jdoe", mr.Author.Username)
	assert.Len(t, mr.Reviewers, 1)
	require.NotNil(t, mr.MergedAt)
	assert.Nil(t, mr.ClosedAt)
	assert.Equal(t, time.Date(2024, 3, 5, 16, 30, 0, 0, time.UTC), mr.UpdatedAt)
}

func TestDecodeMergeRequest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "not json",
			body: `<html></html>`,
		},
		{
			name: "missing iid",
			body: `{"id":1,"project_id":42,"title":"x","state":"opened","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"}`,
		},
		{
			name: "missing updated_at",
			body: `{"id":1,"iid":2,"project_id":42,"title":"x","state":"opened","created_at":"2024-01-01T00:00:00Z"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMergeRequest([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDecodeGroup(t *testing.T) {
	group, err := DecodeGroup([]byte(`{"id":10,"full_path":"acme/platform","name":"Platform"}`))
	require.NoError(t, err)
	assert.Equal(t, 10, group.ID)
	assert.Equal(t, "acme/platform", group.FullPath)

	_, err = DecodeGroup([]byte(`{"id":10}`))
	assert.Error(t, err, "group without full_path must be rejected")
}

func TestDecodeProject(t *testing.T) {
	project, err := DecodeProject([]byte(`{"id":42,"path_with_namespace":"acme/widget","name":"widget","default_branch":"main"}`))
	require.NoError(t, err)
	assert.Equal(t, "acme/widget", project.PathWithNamespace)
	assert.Equal(t, "main", project.DefaultBranch)
}

func TestDecodeNote_SystemFlag(t *testing.T) {
	note, err := DecodeNote([]byte(`{
		"id": 501,
		"body": "changed milestone",
		"created_at": "2024-03-02T09:00:00Z",
		"system": true,
		"author": {"id": 5, "username": "jdoe"}
	}`))
	require.NoError(t, err)
	assert.True(t, note.System)

	note, err = DecodeNote([]byte(`{
		"id": 502,
		"body": "looks good",
		"created_at": "2024-03-02T10:00:00Z",
		"system": false,
		"author": {"id": 9, "username": "reviewer1"}
	}`))
	require.NoError(t, err)
	assert.False(t, note.System, "human note must not carry the system flag")
}

func TestDecodeDiscussion(t *testing.T) {
	discussion, err := DecodeDiscussion([]byte(`{
		"id": "abcdef0123456789",
		"individual_note": false,
		"notes": [
			{"id": 601, "body": "first", "created_at": "2024-03-02T09:00:00Z", "author": {"id": 5, "username": "jdoe"}},
			{"id": 602, "body": "second", "created_at": "2024-03-02T09:05:00Z", "author": {"id": 9, "username": "reviewer1"}}
		]
	}`))
	require.NoError(t, err)
	assert.Len(t, discussion.Notes, 2)
	assert.Equal(t, "abcdef0123456789", discussion.ID)
}

func TestDecodeReviewerState(t *testing.T) {
	state, err := DecodeReviewerState([]byte(`{
		"id": 77,
		"state": "reviewed",
		"user": {"id": 9, "username": "reviewer1"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "reviewed", state.State)
	require.NotNil(t, state.User)
	assert.Equal(t, "reviewer1", state.User.Username)
}

func TestRecordKey(t *testing.T) {
	record := Record{
		MergeRequest: MergeRequest{ProjectID: 42, IID: 7},
	}

	key := record.Key()
	assert.Equal(t, RecordKey{ProjectID: 42, IID: 7}, key)
	assert.Equal(t, "42#7", key.String())
}

func TestDecodeRecord_ExtrasPreserved(t *testing.T) {
	raw := `{
		"project": {"id": 42, "path_with_namespace": "acme/widget", "name": "widget"},
		"merge_request": ` + mergeRequestJSON + `,
		"discussions": [],
		"notes": [],
		"reviewers": [],
		"extras": {
			"pipeline": {"status": "success", "sha": "deadbeef"},
			"approvals": 3
		}
	}`

	record, err := DecodeRecord([]byte(raw))
	require.NoError(t, err)
	require.Contains(t, record.Extras, "pipeline")
	require.Contains(t, record.Extras, "approvals")
	assert.JSONEq(t, `{"status": "success", "sha": "deadbeef"}`, string(record.Extras["pipeline"]))

	// Unknown payloads survive an encode round-trip untouched.
	encoded, err := json.Marshal(record)
	require.NoError(t, err)
	decoded, err := DecodeRecord(encoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(record.Extras["pipeline"]), string(decoded.Extras["pipeline"]))
	assert.JSONEq(t, `3`, string(decoded.Extras["approvals"]))
}
