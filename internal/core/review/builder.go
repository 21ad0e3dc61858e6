package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/colonyops/perch/pkg/jsonwalk"
)

// BuildComments flattens a fetched pull-request payload into the normalized
// comment list: issue comments first within the empty path, review thread
// comments grouped by thread, everything totally ordered by
// (path, line, threadID, createdAt). The ordering is the only contract the
// rendering layer relies on; it must not re-sort.
func BuildComments(pr jsonwalk.Value) []Comment {
	var out []Comment

	for _, node := range pr.Get("comments", "nodes").Slice() {
		c := Comment{
			ID:         node.Get("id").StringOr(""),
			DatabaseID: node.Get("databaseId").Int64Or(0),
			Body:       node.Get("body").StringOr(""),
			Author:     node.Get("author", "login").StringOr("unknown"),
			CreatedAt:  node.Get("createdAt").StringOr(""),
			URL:        node.Get("url").StringOr(""),
			State:      StatePublished,
		}
		c.ReactionsSummary, c.ViewerReactions = buildReactions(node.Get("reactionGroups"))
		out = append(out, c)
	}

	for _, thread := range pr.Get("reviewThreads", "nodes").Slice() {
		threadID := thread.Get("id").StringOr("")
		path := thread.Get("path").StringOr("")
		line := thread.Get("line").IntOr(thread.Get("startLine").IntOr(0))
		originalLine := thread.Get("originalLine").IntOr(line)
		threadOutdated := thread.Get("isOutdated").BoolOr(false)
		resolved := thread.Get("isResolved").BoolOr(false)

		for i, node := range thread.Get("comments", "nodes").Slice() {
			c := Comment{
				ID:             node.Get("id").StringOr(""),
				DatabaseID:     node.Get("databaseId").Int64Or(0),
				Body:           node.Get("body").StringOr(""),
				Author:         node.Get("author", "login").StringOr("unknown"),
				CreatedAt:      node.Get("createdAt").StringOr(""),
				URL:            node.Get("url").StringOr(""),
				Path:           path,
				Line:           line,
				OriginalLine:   originalLine,
				ThreadID:       threadID,
				IsReply:        i > 0,
				ReplyTo:        node.Get("replyTo", "id").StringOr(""),
				ReviewID:       node.Get("pullRequestReview", "id").StringOr(""),
				State:          node.Get("pullRequestReview", "state").StringOr(StatePublished),
				Outdated:       threadOutdated || node.Get("outdated").BoolOr(false),
				Resolved:       resolved,
				OriginalCommit: node.Get("originalCommit", "oid").StringOr(""),
				DiffHunk:       node.Get("diffHunk").StringOr(""),
			}
			c.ReactionsSummary, c.ViewerReactions = buildReactions(node.Get("reactionGroups"))
			out = append(out, c)
		}
	}

	sortComments(out)
	return out
}

// sortComments applies the total order. The sort is stable so equal keys
// keep insertion order (issue comments stay in API order).
func sortComments(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		if a.Path != b.Path {
			return a.Path < b.Path // empty path (general comments) sorts first
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.ThreadID != b.ThreadID {
			return a.ThreadID < b.ThreadID
		}
		return a.CreatedAt < b.CreatedAt
	})
}

// buildReactions aggregates reactionGroups into the display summary and the
// viewer's own reaction kinds. Kinds with zero count emit no token; counts
// above one append the count to the icon.
func buildReactions(groups jsonwalk.Value) (summary string, viewer []string) {
	var tokens []string
	for _, g := range groups.Slice() {
		kind := g.Get("content").StringOr("")
		if kind == "" {
			continue
		}
		count := g.Get("reactors", "totalCount").IntOr(0)
		if count > 0 {
			token := ReactionIcon(kind)
			if count > 1 {
				token = fmt.Sprintf("%s%d", token, count)
			}
			tokens = append(tokens, token)
		}
		if g.Get("viewerHasReacted").BoolOr(false) {
			viewer = append(viewer, kind)
		}
	}
	return strings.Join(tokens, " "), viewer
}

// BuildFiles extracts the changed-file list from a fetched payload.
func BuildFiles(pr jsonwalk.Value) []ChangedFile {
	var out []ChangedFile
	for _, node := range pr.Get("files", "nodes").Slice() {
		out = append(out, ChangedFile{
			Path:      node.Get("path").StringOr(""),
			Status:    fileStatus(node.Get("changeType").StringOr("")),
			Additions: node.Get("additions").IntOr(0),
			Deletions: node.Get("deletions").IntOr(0),
		})
	}
	return out
}

func fileStatus(changeType string) FileStatus {
	switch changeType {
	case "ADDED":
		return FileAdded
	case "DELETED":
		return FileRemoved
	case "RENAMED":
		return FileRenamed
	case "COPIED":
		return FileCopied
	default:
		return FileModified
	}
}

// FindPendingReview scans the payload's reviews list for one in PENDING
// state. Returns nil when the viewer has no outstanding review.
func FindPendingReview(pr jsonwalk.Value) *PendingReview {
	for _, node := range pr.Get("reviews", "nodes").Slice() {
		if node.Get("state").StringOr("") != StatePending {
			continue
		}
		return &PendingReview{
			ID:         node.Get("id").StringOr(""),
			DatabaseID: node.Get("databaseId").Int64Or(0),
		}
	}
	return nil
}
