package ghapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v72/github"

	"github.com/zhubert/gitcore/git"
	"github.com/zhubert/gitcore/logger"
)

// RepoFromRemote resolves a remote URL to a GitHub repository without any
// network access. An empty URL fails with NoRemoteConfigured; a URL on any
// other host fails with NotGitHub.
func (c *Client) RepoFromRemote(remoteURL string) (Repo, error) {
	const op = "github"

	if strings.TrimSpace(remoteURL) == "" {
		return Repo{}, git.NewError(git.KindNoRemoteConfigured, op, git.ErrNoRemote)
	}
	info, ok := git.ParseRemoteURL(remoteURL)
	if !ok || !c.isGitHubHost(info.Host) {
		return Repo{}, git.NewError(git.KindNotGitHub, op, fmt.Errorf("%w: %s", git.ErrNotGitHub, remoteURL))
	}
	return Repo{Host: info.Host, Owner: info.Owner, Name: info.Repo}, nil
}

func listOptions() github.ListOptions {
	return github.ListOptions{PerPage: defaultPerPage}
}

// Issues returns the first page of open issues. Pull requests, which the
// issues endpoint also returns, are left out.
func (c *Client) Issues(ctx context.Context, repo Repo) (*IssuesResponse, error) {
	const op = "github issues"

	gh, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	list, resp, err := gh.Issues.ListByRepo(ctx, repo.Owner, repo.Name, &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: listOptions(),
	})
	if err != nil {
		return nil, mapError(op, err)
	}
	logger.WithComponent("github").Debug("listed issues", "repo", repo.String(), "count", len(list), "duration", time.Since(start))

	out := &IssuesResponse{Items: []Issue{}, HasMore: resp != nil && resp.NextPage != 0}
	for _, is := range list {
		if is.IsPullRequest() {
			continue
		}
		labels := make([]string, 0, len(is.Labels))
		for _, l := range is.Labels {
			labels = append(labels, l.GetName())
		}
		out.Items = append(out.Items, Issue{
			Number:    is.GetNumber(),
			Title:     is.GetTitle(),
			State:     is.GetState(),
			Author:    is.GetUser().GetLogin(),
			Labels:    labels,
			URL:       is.GetHTMLURL(),
			CreatedAt: is.GetCreatedAt().Time,
			UpdatedAt: is.GetUpdatedAt().Time,
		})
	}
	out.Total = len(out.Items)
	return out, nil
}

// PullRequests returns the first page of open pull requests.
func (c *Client) PullRequests(ctx context.Context, repo Repo) (*PullRequestsResponse, error) {
	const op = "github pull requests"

	gh, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	list, resp, err := gh.PullRequests.List(ctx, repo.Owner, repo.Name, &github.PullRequestListOptions{
		State:       "open",
		ListOptions: listOptions(),
	})
	if err != nil {
		return nil, mapError(op, err)
	}

	out := &PullRequestsResponse{Items: make([]PullRequest, 0, len(list)), HasMore: resp != nil && resp.NextPage != 0}
	for _, pr := range list {
		out.Items = append(out.Items, PullRequest{
			Number:    pr.GetNumber(),
			Title:     pr.GetTitle(),
			State:     pr.GetState(),
			Head:      pr.GetHead().GetRef(),
			Base:      pr.GetBase().GetRef(),
			Author:    pr.GetUser().GetLogin(),
			Draft:     pr.GetDraft(),
			URL:       pr.GetHTMLURL(),
			CreatedAt: pr.GetCreatedAt().Time,
			UpdatedAt: pr.GetUpdatedAt().Time,
		})
	}
	out.Total = len(out.Items)
	return out, nil
}

// PullRequestDiff fetches the pull request's unified diff and splits it per
// file.
func (c *Client) PullRequestDiff(ctx context.Context, repo Repo, number int) (*PullRequestDiff, error) {
	const op = "github pull request diff"

	if number <= 0 {
		return nil, git.NewError(git.KindInvalidInput, op, fmt.Errorf("invalid pull request number %d", number))
	}
	gh, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	raw, _, err := gh.PullRequests.GetRaw(ctx, repo.Owner, repo.Name, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return nil, mapError(op, err)
	}

	files := git.ParseUnifiedDiff(raw)
	out := &PullRequestDiff{Number: number, Files: make([]PullRequestFileDiff, 0, len(files))}
	for _, f := range files {
		out.Files = append(out.Files, PullRequestFileDiff{
			Path:   f.Path,
			Status: string(f.Kind),
			Diff:   f.Diff,
		})
	}
	return out, nil
}

// PullRequestComments returns the first page of review comments.
func (c *Client) PullRequestComments(ctx context.Context, repo Repo, number int) ([]PullRequestComment, error) {
	const op = "github pull request comments"

	if number <= 0 {
		return nil, git.NewError(git.KindInvalidInput, op, fmt.Errorf("invalid pull request number %d", number))
	}
	gh, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	list, _, err := gh.PullRequests.ListComments(ctx, repo.Owner, repo.Name, number, &github.PullRequestListCommentsOptions{
		ListOptions: listOptions(),
	})
	if err != nil {
		return nil, mapError(op, err)
	}

	out := make([]PullRequestComment, 0, len(list))
	for _, cm := range list {
		out = append(out, PullRequestComment{
			ID:        cm.GetID(),
			Author:    cm.GetUser().GetLogin(),
			Body:      cm.GetBody(),
			Path:      cm.GetPath(),
			Line:      cm.GetLine(),
			URL:       cm.GetHTMLURL(),
			CreatedAt: cm.GetCreatedAt().Time,
		})
	}
	return out, nil
}
