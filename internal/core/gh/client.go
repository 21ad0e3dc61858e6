package gh

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/perch/pkg/jsonwalk"
)

// ErrMalformedResponse marks a gh call that exited zero but whose JSON is
// missing the field the operation depends on.
var ErrMalformedResponse = errors.New("unexpected gh response shape")

// ReviewEvent is the terminal state a review submission requests.
type ReviewEvent string

const (
	EventApprove        ReviewEvent = "APPROVE"
	EventRequestChanges ReviewEvent = "REQUEST_CHANGES"
	EventComment        ReviewEvent = "COMMENT"
)

// Valid reports whether the event is one GitHub accepts.
func (e ReviewEvent) Valid() bool {
	switch e {
	case EventApprove, EventRequestChanges, EventComment:
		return true
	}
	return false
}

// DiffSide is which side of the diff a new thread anchors to.
type DiffSide string

const (
	SideLeft  DiffSide = "LEFT"
	SideRight DiffSide = "RIGHT"
)

// FetchPullRequest retrieves the full review payload for one PR:
// identity, issue comments, review threads, pending reviews, changed files.
func (c *Client) FetchPullRequest(ctx context.Context, owner, repo string, number int) (jsonwalk.Value, error) {
	query := formatQuery(pullRequestQuery, gqlString(owner), gqlString(repo), number)
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return jsonwalk.Value{}, err
	}

	pr := resp.Get("data", "repository", "pullRequest")
	if !pr.Exists() {
		return jsonwalk.Value{}, fmt.Errorf("%w: no pullRequest in response", ErrMalformedResponse)
	}
	return pr, nil
}

// CurrentPRNumber resolves the pull request associated with the checked-out
// branch, via gh's own branch inference. The process working directory must
// be inside the repository.
func (c *Client) CurrentPRNumber(ctx context.Context) (int, error) {
	resp, err := c.OutputJSON(ctx, "pr", "view", "--json", "number")
	if err != nil {
		return 0, err
	}
	n := resp.Get("number").IntOr(0)
	if n == 0 {
		return 0, fmt.Errorf("%w: pr view returned no number", ErrMalformedResponse)
	}
	return n, nil
}

// LatestCommitSHA returns the PR's current head commit oid.
func (c *Client) LatestCommitSHA(ctx context.Context, owner, repo string, number int) (string, error) {
	query := formatQuery(latestCommitQuery, gqlString(owner), gqlString(repo), number)
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return "", err
	}

	oid := resp.Get("data", "repository", "pullRequest", "commits").
		Get("nodes").Index(0).Get("commit", "oid").StringOr("")
	if oid == "" {
		return "", fmt.Errorf("%w: no head commit in response", ErrMalformedResponse)
	}
	return oid, nil
}

// CreateReview opens a new pending review anchored to the given commit.
func (c *Client) CreateReview(ctx context.Context, prID, commitSHA string) (id string, databaseID int64, err error) {
	query := formatQuery(createReviewMutation, gqlString(prID), gqlString(commitSHA))
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return "", 0, err
	}

	review := resp.Get("data", "addPullRequestReview", "pullRequestReview")
	if !review.Exists() {
		return "", 0, fmt.Errorf("%w: addPullRequestReview returned no review", ErrMalformedResponse)
	}
	return review.Get("id").StringOr(""), review.Get("databaseId").Int64Or(0), nil
}

// AddReviewThread starts a new thread on path:line under a pending review.
func (c *Client) AddReviewThread(ctx context.Context, reviewID, path string, line int, side DiffSide, body string) error {
	query := formatQuery(addReviewThreadMutation,
		gqlString(reviewID), gqlString(path), line, string(side), gqlString(body))
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return err
	}
	if !resp.Get("data", "addPullRequestReviewThread", "thread").Exists() {
		return fmt.Errorf("%w: addPullRequestReviewThread returned no thread", ErrMalformedResponse)
	}
	return nil
}

// AddReviewReply replies to an existing review comment under a pending review.
func (c *Client) AddReviewReply(ctx context.Context, reviewID, inReplyTo, body string) error {
	query := formatQuery(addReviewReplyMutation,
		gqlString(reviewID), gqlString(inReplyTo), gqlString(body))
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return err
	}
	if !resp.Get("data", "addPullRequestReviewComment", "comment").Exists() {
		return fmt.Errorf("%w: addPullRequestReviewComment returned no comment", ErrMalformedResponse)
	}
	return nil
}

// AddIssueComment adds a general (issue-level) comment to the PR.
func (c *Client) AddIssueComment(ctx context.Context, subjectID, body string) error {
	query := formatQuery(addIssueCommentMutation, gqlString(subjectID), gqlString(body))
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return err
	}
	if !resp.Get("data", "addComment", "commentEdge").Exists() {
		return fmt.Errorf("%w: addComment returned no edge", ErrMalformedResponse)
	}
	return nil
}

// UpdateComment edits a comment body. The id may belong to either a review
// comment or an issue comment; the review mutation is tried first and the
// issue mutation is the fallback, since the id alone does not say which
// kind it is.
func (c *Client) UpdateComment(ctx context.Context, id, body string) error {
	query := formatQuery(updateReviewCommentMutation, gqlString(id), gqlString(body))
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err == nil && resp.Get("data", "updatePullRequestReviewComment").Exists() {
		return nil
	}

	query = formatQuery(updateIssueCommentMutation, gqlString(id), gqlString(body))
	resp, err = c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return err
	}
	if !resp.Get("data", "updateIssueComment").Exists() {
		return fmt.Errorf("%w: updateIssueComment returned nothing", ErrMalformedResponse)
	}
	return nil
}

// DeleteComment removes a comment, trying the review-comment mutation first
// and falling back to the issue-comment one.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	query := formatQuery(deleteReviewCommentMutation, gqlString(id))
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err == nil && resp.Get("data", "deletePullRequestReviewComment").Exists() {
		return nil
	}

	query = formatQuery(deleteIssueCommentMutation, gqlString(id))
	resp, err = c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return err
	}
	if !resp.Get("data", "deleteIssueComment").Exists() {
		return fmt.Errorf("%w: deleteIssueComment returned nothing", ErrMalformedResponse)
	}
	return nil
}

// SubmitReview finalizes a pending review with the given event.
func (c *Client) SubmitReview(ctx context.Context, reviewID string, event ReviewEvent) error {
	if !event.Valid() {
		return fmt.Errorf("invalid review event %q", event)
	}

	query := formatQuery(submitReviewMutation, gqlString(reviewID), string(event))
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return err
	}
	if !resp.Get("data", "submitPullRequestReview", "pullRequestReview").Exists() {
		return fmt.Errorf("%w: submitPullRequestReview returned no review", ErrMalformedResponse)
	}
	return nil
}

// AddReaction adds the viewer's reaction to a comment.
func (c *Client) AddReaction(ctx context.Context, subjectID, content string) error {
	query := formatQuery(addReactionMutation, gqlString(subjectID), content)
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return err
	}
	if !resp.Get("data", "addReaction", "reaction").Exists() {
		return fmt.Errorf("%w: addReaction returned no reaction", ErrMalformedResponse)
	}
	return nil
}

// RemoveReaction removes the viewer's reaction from a comment.
func (c *Client) RemoveReaction(ctx context.Context, subjectID, content string) error {
	query := formatQuery(removeReactionMutation, gqlString(subjectID), content)
	resp, err := c.OutputJSON(ctx, graphqlArgs(query)...)
	if err != nil {
		return err
	}
	if !resp.Get("data", "removeReaction", "reaction").Exists() {
		return fmt.Errorf("%w: removeReaction returned no reaction", ErrMalformedResponse)
	}
	return nil
}
