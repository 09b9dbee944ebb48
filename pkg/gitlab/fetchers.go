package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/glmr-tools/glmr/pkg/client"
)

// FetchGroup returns metadata about a group by id or full path.
func FetchGroup(ctx context.Context, c *client.Client, groupIDOrPath string) (Group, error) {
	resp, err := c.Get(ctx, "/groups/"+url.PathEscape(groupIDOrPath), nil)
	if err != nil {
		return Group{}, err
	}
	return DecodeGroup(resp.Body)
}

// FetchGroupProjects returns all projects under a group, including
// subgroups, restricted to unarchived projects with merge requests enabled.
func FetchGroupProjects(ctx context.Context, c *client.Client, groupIDOrPath string) ([]Project, error) {
	params := url.Values{}
	params.Set("include_subgroups", "true")
	params.Set("with_merge_requests_enabled", "true")
	params.Set("archived", "false")
	params.Set("order_by", "last_activity_at")
	params.Set("sort", "desc")

	path := "/groups/" + url.PathEscape(groupIDOrPath) + "/projects"

	var projects []Project
	err := c.Paginate(ctx, http.MethodGet, path, params, func(raw json.RawMessage) error {
		project, err := DecodeProject(raw)
		if err != nil {
			return err
		}
		projects = append(projects, project)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// FetchProjectMergeRequests returns merge requests for a project in every
// state, newest activity first. A non-empty updatedAfter (ISO8601) limits
// the listing to merge requests updated since that instant.
func FetchProjectMergeRequests(ctx context.Context, c *client.Client, projectID int, updatedAfter string) ([]MergeRequest, error) {
	params := url.Values{}
	params.Set("scope", "all")
	params.Set("state", "all")
	params.Set("order_by", "updated_at")
	params.Set("sort", "desc")
	if updatedAfter != "" {
		params.Set("updated_after", updatedAfter)
	}

	path := fmt.Sprintf("/projects/%d/merge_requests", projectID)

	var mrs []MergeRequest
	err := c.Paginate(ctx, http.MethodGet, path, params, func(raw json.RawMessage) error {
		mr, err := DecodeMergeRequest(raw)
		if err != nil {
			return err
		}
		mrs = append(mrs, mr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mrs, nil
}

// FetchMergeRequestDiscussions returns the discussion threads of a merge request.
func FetchMergeRequestDiscussions(ctx context.Context, c *client.Client, projectID, mrIID int) ([]Discussion, error) {
	path := fmt.Sprintf("/projects/%d/merge_requests/%d/discussions", projectID, mrIID)

	var discussions []Discussion
	err := c.Paginate(ctx, http.MethodGet, path, nil, func(raw json.RawMessage) error {
		discussion, err := DecodeDiscussion(raw)
		if err != nil {
			return err
		}
		discussions = append(discussions, discussion)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return discussions, nil
}

// FetchMergeRequestNotes returns the system and user notes of a merge request.
func FetchMergeRequestNotes(ctx context.Context, c *client.Client, projectID, mrIID int) ([]Note, error) {
	path := fmt.Sprintf("/projects/%d/merge_requests/%d/notes", projectID, mrIID)

	var notes []Note
	err := c.Paginate(ctx, http.MethodGet, path, nil, func(raw json.RawMessage) error {
		note, err := DecodeNote(raw)
		if err != nil {
			return err
		}
		notes = append(notes, note)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// FetchMergeRequestReviewers returns reviewer states of a merge request.
func FetchMergeRequestReviewers(ctx context.Context, c *client.Client, projectID, mrIID int) ([]ReviewerState, error) {
	path := fmt.Sprintf("/projects/%d/merge_requests/%d/reviewers", projectID, mrIID)

	var states []ReviewerState
	err := c.Paginate(ctx, http.MethodGet, path, nil, func(raw json.RawMessage) error {
		state, err := DecodeReviewerState(raw)
		if err != nil {
			return err
		}
		states = append(states, state)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}
