package gitlab

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glmr-tools/glmr/internal/testutil"
	"github.com/glmr-tools/glmr/pkg/client"
)

func newTestClient(t *testing.T, mock *testutil.MockGitLab) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(mock.URL(), "test-token")
	cfg.Retry = client.RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	c, err := client.New(cfg)
	require.NoError(t, err)
	return c
}

func TestFetchGroup(t *testing.T) {
	mock := testutil.NewMockGitLab()
	defer mock.Close()

	// The client path-escapes the slash; the server decodes it back.
	mock.SetResponse("/groups/acme/platform",
		testutil.NewJSONResponse(`{"id":10,"full_path":"acme/platform","name":"Platform"}`))

	c := newTestClient(t, mock)

	group, err := FetchGroup(context.Background(), c, "acme/platform")
	require.NoError(t, err)
	assert.Equal(t, 10, group.ID)
	assert.Equal(t, "acme/platform", group.FullPath)
}

func TestFetchGroupProjects(t *testing.T) {
	mock := testutil.NewMockGitLab()
	defer mock.Close()

	mock.SetPages("/groups/acme/projects",
		`[{"id":1,"path_with_namespace":"acme/api","name":"api"},
		  {"id":2,"path_with_namespace":"acme/web","name":"web"}]`,
		`[{"id":3,"path_with_namespace":"acme/infra","name":"infra"}]`,
	)

	c := newTestClient(t, mock)

	projects, err := FetchGroupProjects(context.Background(), c, "acme")
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "acme/api", projects[0].PathWithNamespace)
	assert.Equal(t, "acme/infra", projects[2].PathWithNamespace)
	assert.Equal(t, 2, mock.RequestCount("/groups/acme/projects"))
}

func TestFetchProjectMergeRequests(t *testing.T) {
	mock := testutil.NewMockGitLab()
	defer mock.Close()

	mock.SetPages("/projects/42/merge_requests",
		`[`+mergeRequestJSON+`]`,
	)

	c := newTestClient(t, mock)

	mrs, err := FetchProjectMergeRequests(context.Background(), c, 42, "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	require.Len(t, mrs, 1)
	assert.Equal(t, 7, mrs[0].IID)
}

func TestFetchProjectMergeRequests_InvalidElement(t *testing.T) {
	mock := testutil.NewMockGitLab()
	defer mock.Close()

	// Second element is missing required fields.
	mock.SetPages("/projects/42/merge_requests",
		`[`+mergeRequestJSON+`, {"id": 9}]`,
	)

	c := newTestClient(t, mock)

	_, err := FetchProjectMergeRequests(context.Background(), c, 42, "")
	assert.Error(t, err, "an undecodable listing element must fail the fetch")
}

func TestFetchMergeRequestDetails(t *testing.T) {
	mock := testutil.NewMockGitLab()
	defer mock.Close()

	mock.SetResponse("/projects/42/merge_requests/7/discussions", testutil.NewJSONResponse(`[
		{"id": "d1", "individual_note": true, "notes": [
			{"id": 601, "body": "lgtm", "created_at": "2024-03-02T09:00:00Z", "author": {"id": 9, "username": "reviewer1"}}
		]}
	]`))
	mock.SetResponse("/projects/42/merge_requests/7/notes", testutil.NewJSONResponse(`[
		{"id": 601, "body": "lgtm", "created_at": "2024-03-02T09:00:00Z", "author": {"id": 9, "username": "reviewer1"}},
		{"id": 602, "body": "merged", "created_at": "2024-03-05T16:30:00Z", "system": true, "author": {"id": 5, "username": "jdoe"}}
	]`))
	mock.SetResponse("/projects/42/merge_requests/7/reviewers", testutil.NewJSONResponse(`[
		{"id": 77, "state": "reviewed", "user": {"id": 9, "username": "reviewer1"}}
	]`))

	c := newTestClient(t, mock)
	ctx := context.Background()

	discussions, err := FetchMergeRequestDiscussions(ctx, c, 42, 7)
	require.NoError(t, err)
	require.Len(t, discussions, 1)
	assert.True(t, discussions[0].IndividualNote)

	notes, err := FetchMergeRequestNotes(ctx, c, 42, 7)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.True(t, notes[1].System)

	reviewers, err := FetchMergeRequestReviewers(ctx, c, 42, 7)
	require.NoError(t, err)
	require.Len(t, reviewers, 1)
	assert.Equal(t, "reviewed", reviewers[0].State)
}

func TestFetchGroup_NotFound(t *testing.T) {
	mock := testutil.NewMockGitLab()
	defer mock.Close()

	c := newTestClient(t, mock)

	_, err := FetchGroup(context.Background(), c, "missing")
	assert.Error(t, err)
}
