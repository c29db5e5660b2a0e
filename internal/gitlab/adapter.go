package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/model"
	"github.com/galushkoart/gitlab-mr-conflict-detector/pkg/errors"
)

const (
	// devNullPath is the sentinel path GitLab uses for one side of an
	// added/deleted file diff; it never contributes to a changed-file set.
	devNullPath = "/dev/null"

	// mergeRequestsPerPage bounds each page of the open-MR listing call.
	mergeRequestsPerPage = 100
)

// RawMergeRequest is the subset of platform MR fields the core needs,
// independent of the concrete client-go response type: used both to
// assemble a MergeRequestSummary for a specifically-requested IID and to
// resolve a peer's post-conflict state (§4.4, §6).
type RawMergeRequest struct {
	IID          int64
	Title        string
	SourceBranch string
	TargetBranch string
	State        string // StateOpened, StateMerged, or StateClosed
	Labels       []string
	Draft        bool
}

// PlatformAdapter is the abstract set of platform operations the engine and
// reconciler depend on (C5). The concrete implementation talks to GitLab via
// client-go; tests substitute a fake.
type PlatformAdapter interface {
	ListOpenMergeRequests(ctx context.Context, projectID int) ([]*model.MergeRequestSummary, error)
	GetMergeRequest(ctx context.Context, projectID int, iid int64) (*RawMergeRequest, error)
	GetMergeRequestChanges(ctx context.Context, projectID int, iid int64) (map[string]struct{}, error)
	UpdateMergeRequestLabels(ctx context.Context, projectID int, iid int64, labels []string) error
	CreateMergeRequestNote(ctx context.Context, projectID int, iid int64, body string) error
	HasProjectAccess(ctx context.Context, projectID int) (bool, error)
}

// gitlabAdapter implements PlatformAdapter against the wrapped Client, with
// a request-scoped cache over the read operations (§5) and bounded retry
// (via Client.Retry) on every call that reaches the network.
type gitlabAdapter struct {
	client  *Client
	cache   *Cache
	timeout time.Duration
}

// NewPlatformAdapter builds the production PlatformAdapter around an
// already-configured Client, reusing its timeout and the given request-scoped
// cache (one per run per §5); a nil cache is replaced by a new one with
// DefaultCacheTTL.
func NewPlatformAdapter(client *Client, cache *Cache) PlatformAdapter {
	if cache == nil {
		cache = NewCache(DefaultCacheTTL)
	}
	return &gitlabAdapter{client: client, cache: cache, timeout: client.GetTimeout()}
}

func (a *gitlabAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

// ListOpenMergeRequests fetches every open merge request for projectID, with
// its changed-file set already resolved, paginating until exhausted.
func (a *gitlabAdapter) ListOpenMergeRequests(ctx context.Context, projectID int) ([]*model.MergeRequestSummary, error) {
	cacheKey := CacheKey{Operation: "merge_request_list", Params: fmt.Sprintf("%d", projectID)}
	if cached, ok := a.cache.Get(cacheKey); ok {
		return cached.([]*model.MergeRequestSummary), nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	opts := &gitlab.ListProjectMergeRequestsOptions{
		ListOptions: gitlab.ListOptions{PerPage: mergeRequestsPerPage, Page: 1},
		State:       gitlab.Ptr(StateOpened),
	}

	var out []*model.MergeRequestSummary
	for {
		var mrs []*gitlab.MergeRequest
		resp, err := a.client.Retry(ctx, func() (*gitlab.Response, error) {
			var innerErr error
			var innerResp *gitlab.Response
			mrs, innerResp, innerErr = a.client.GetGitLabClient().MergeRequests.ListProjectMergeRequests(projectID, opts, gitlab.WithContext(ctx))
			return innerResp, innerErr
		})
		if err != nil {
			return nil, errors.NewNetworkErrorWithCause(fmt.Sprintf("failed to list merge requests for project %d", projectID), err)
		}

		for _, mr := range mrs {
			files, err := a.GetMergeRequestChanges(ctx, projectID, int64(mr.IID))
			if err != nil {
				return nil, err
			}
			out = append(out, &model.MergeRequestSummary{
				ID:           int64(mr.IID),
				Title:        mr.Title,
				SourceBranch: mr.SourceBranch,
				TargetBranch: mr.TargetBranch,
				ChangedFiles: files,
				Labels:       toLabelSet(mr.Labels),
				Draft:        mr.Draft,
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	a.cache.Set(cacheKey, out)
	return out, nil
}

// GetMergeRequest fetches a single merge request's raw state, used both for
// the --mr-iids path and for resolving a peer's post-conflict state.
func (a *gitlabAdapter) GetMergeRequest(ctx context.Context, projectID int, iid int64) (*RawMergeRequest, error) {
	cacheKey := CacheKey{Operation: "merge_request", Params: fmt.Sprintf("%d/%d", projectID, iid)}
	if cached, ok := a.cache.Get(cacheKey); ok {
		return cached.(*RawMergeRequest), nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var mr *gitlab.MergeRequest
	_, err := a.client.Retry(ctx, func() (*gitlab.Response, error) {
		var innerErr error
		var innerResp *gitlab.Response
		mr, innerResp, innerErr = a.client.GetGitLabClient().MergeRequests.GetMergeRequest(projectID, int(iid), nil, gitlab.WithContext(ctx))
		return innerResp, innerErr
	})
	if err != nil {
		return nil, errors.NewNetworkErrorWithCause(fmt.Sprintf("failed to get merge request !%d", iid), err)
	}

	raw := &RawMergeRequest{
		IID:          int64(mr.IID),
		Title:        mr.Title,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		State:        mr.State,
		Labels:       []string(mr.Labels),
		Draft:        mr.Draft,
	}
	a.cache.Set(cacheKey, raw)
	return raw, nil
}

// GetMergeRequestChanges derives the changed-file set per §3: both sides of
// a rename contribute, a deletion keeps its old path, and the /dev/null
// sentinel never appears in the result.
func (a *gitlabAdapter) GetMergeRequestChanges(ctx context.Context, projectID int, iid int64) (map[string]struct{}, error) {
	cacheKey := CacheKey{Operation: "merge_request_changes", Params: fmt.Sprintf("%d/%d", projectID, iid)}
	if cached, ok := a.cache.Get(cacheKey); ok {
		return cached.(map[string]struct{}), nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var mr *gitlab.MergeRequestChanges
	_, err := a.client.Retry(ctx, func() (*gitlab.Response, error) {
		var innerErr error
		var innerResp *gitlab.Response
		mr, innerResp, innerErr = a.client.GetGitLabClient().MergeRequests.GetMergeRequestChanges(projectID, int(iid), nil, gitlab.WithContext(ctx))
		return innerResp, innerErr
	})
	if err != nil {
		return nil, errors.NewNetworkErrorWithCause(fmt.Sprintf("failed to get changes for merge request !%d", iid), err)
	}

	files := make(map[string]struct{}, len(mr.Changes)*2)
	for _, change := range mr.Changes {
		addChangedPath(files, change.OldPath)
		addChangedPath(files, change.NewPath)
	}

	a.cache.Set(cacheKey, files)
	return files, nil
}

func addChangedPath(files map[string]struct{}, path string) {
	if path == "" || path == devNullPath {
		return
	}
	files[path] = struct{}{}
}

// UpdateMergeRequestLabels replaces the full label set for iid.
func (a *gitlabAdapter) UpdateMergeRequestLabels(ctx context.Context, projectID int, iid int64, labels []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	labelOpts := gitlab.LabelOptions(labels)
	opts := &gitlab.UpdateMergeRequestOptions{Labels: &labelOpts}

	_, err := a.client.Retry(ctx, func() (*gitlab.Response, error) {
		_, innerResp, innerErr := a.client.GetGitLabClient().MergeRequests.UpdateMergeRequest(projectID, int(iid), opts, gitlab.WithContext(ctx))
		return innerResp, innerErr
	})
	if err != nil {
		return errors.NewAPIErrorWithContext(fmt.Sprintf("failed to update labels for merge request !%d", iid), fmt.Sprintf("%v", labels))
	}
	return nil
}

// CreateMergeRequestNote appends a Markdown comment to iid.
func (a *gitlabAdapter) CreateMergeRequestNote(ctx context.Context, projectID int, iid int64, body string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	opts := &gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(body)}
	_, err := a.client.Retry(ctx, func() (*gitlab.Response, error) {
		_, innerResp, innerErr := a.client.GetGitLabClient().Notes.CreateMergeRequestNote(projectID, int(iid), opts, gitlab.WithContext(ctx))
		return innerResp, innerErr
	})
	if err != nil {
		return errors.NewAPIError(fmt.Sprintf("failed to create note on merge request !%d: %v", iid, err))
	}
	return nil
}

// HasProjectAccess is the §7 authentication pre-flight: 403/404 mean denied
// access rather than a transport failure, so they bypass retry entirely.
func (a *gitlabAdapter) HasProjectAccess(ctx context.Context, projectID int) (bool, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.Retry(ctx, func() (*gitlab.Response, error) {
		_, innerResp, innerErr := a.client.GetGitLabClient().Projects.GetProject(projectID, nil, gitlab.WithContext(ctx))
		return innerResp, innerErr
	})
	if err == nil {
		return true, nil
	}
	if resp != nil && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound) {
		return false, nil
	}
	return false, errors.NewNetworkErrorWithCause(fmt.Sprintf("failed to verify access to project %d", projectID), err)
}

func toLabelSet(labels gitlab.Labels) map[string]struct{} {
	out := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		out[l] = struct{}{}
	}
	return out
}
