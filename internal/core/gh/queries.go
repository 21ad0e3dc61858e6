package gh

import (
	"encoding/json"
	"fmt"
	"strings"
)

// gqlString encodes a caller-supplied value as a JSON string literal so it
// can be interpolated into a query body without breaking the query.
// Structural identifiers (node ids, enum names) from prior server responses
// are interpolated bare and never pass through here.
func gqlString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// pullRequestQuery fetches everything one review session load needs:
// PR identity, issue comments, review threads, the viewer's pending
// reviews, and the changed file list.
const pullRequestQuery = `query {
  repository(owner: %s, name: %s) {
    pullRequest(number: %d) {
      id
      headRefOid
      baseRefOid
      comments(first: 100) {
        nodes {
          id databaseId body createdAt url
          author { login }
          reactionGroups { content viewerHasReacted reactors { totalCount } }
        }
      }
      reviews(first: 50, states: [PENDING]) {
        nodes { id databaseId state author { login } }
      }
      reviewThreads(first: 100) {
        nodes {
          id path line startLine originalLine isResolved isOutdated
          comments(first: 100) {
            nodes {
              id databaseId body createdAt url outdated diffHunk
              author { login }
              replyTo { id }
              originalCommit { oid }
              pullRequestReview { id databaseId state }
              reactionGroups { content viewerHasReacted reactors { totalCount } }
            }
          }
        }
      }
      files(first: 100) {
        nodes { path additions deletions changeType }
      }
    }
  }
}`

// latestCommitQuery fetches the head commit SHA a new review is anchored to.
const latestCommitQuery = `query {
  repository(owner: %s, name: %s) {
    pullRequest(number: %d) {
      commits(last: 1) { nodes { commit { oid } } }
    }
  }
}`

const createReviewMutation = `mutation {
  addPullRequestReview(input: {pullRequestId: %s, commitOID: %s}) {
    pullRequestReview { id databaseId }
  }
}`

const addReviewThreadMutation = `mutation {
  addPullRequestReviewThread(input: {pullRequestReviewId: %s, path: %s, line: %d, side: %s, body: %s}) {
    thread { id }
  }
}`

const addReviewReplyMutation = `mutation {
  addPullRequestReviewComment(input: {pullRequestReviewId: %s, inReplyTo: %s, body: %s}) {
    comment { id }
  }
}`

const addIssueCommentMutation = `mutation {
  addComment(input: {subjectId: %s, body: %s}) {
    commentEdge { node { id } }
  }
}`

const updateReviewCommentMutation = `mutation {
  updatePullRequestReviewComment(input: {pullRequestReviewCommentId: %s, body: %s}) {
    pullRequestReviewComment { id }
  }
}`

const updateIssueCommentMutation = `mutation {
  updateIssueComment(input: {id: %s, body: %s}) {
    issueComment { id }
  }
}`

const deleteReviewCommentMutation = `mutation {
  deletePullRequestReviewComment(input: {id: %s}) {
    pullRequestReviewComment { id }
  }
}`

const deleteIssueCommentMutation = `mutation {
  deleteIssueComment(input: {id: %s}) {
    clientMutationId
  }
}`

const submitReviewMutation = `mutation {
  submitPullRequestReview(input: {pullRequestReviewId: %s, event: %s}) {
    pullRequestReview { id state }
  }
}`

const addReactionMutation = `mutation {
  addReaction(input: {subjectId: %s, content: %s}) {
    reaction { content }
  }
}`

const removeReactionMutation = `mutation {
  removeReaction(input: {subjectId: %s, content: %s}) {
    reaction { content }
  }
}`

// IsStaleReference reports whether an error indicates a remote object id
// the server can no longer resolve (deleted or invalidated server-side).
func IsStaleReference(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not resolve to a node") ||
		strings.Contains(msg, "could not be resolved")
}

// graphqlArgs builds the argv for a gh GraphQL invocation.
func graphqlArgs(query string) []string {
	return []string{"api", "graphql", "-f", "query=" + query}
}

func formatQuery(template string, args ...any) string {
	return fmt.Sprintf(template, args...)
}
