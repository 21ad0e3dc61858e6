// Package review implements the pull-request review session engine:
// the normalized comment model, the pending-review lifecycle, and the
// session aggregate that drives navigation and mutations.
package review

import "strings"

// Comment states as reported by GitHub. Issue-level comments are always
// PUBLISHED; review comments carry their parent review's state.
const (
	StatePublished = "PUBLISHED"
	StatePending   = "PENDING"
	StateCommented = "COMMENTED"
	StateApproved  = "APPROVED"
)

// Comment is one normalized entry in the flat, deterministically ordered
// comment list. Path is empty for general (issue-level) comments, as is
// ThreadID.
type Comment struct {
	ID             string
	DatabaseID     int64
	Body           string
	Author         string
	CreatedAt      string // ISO-8601; lexicographic compare is chronological
	URL            string
	Path           string
	Line           int
	OriginalLine   int
	State          string
	ThreadID       string
	IsReply        bool
	ReplyTo        string
	ReviewID       string
	Outdated       bool
	Resolved       bool
	OriginalCommit string
	DiffHunk       string

	// ReactionsSummary is the space-joined display form ("👍3 👀");
	// ViewerReactions lists the raw kinds the viewer reacted with
	// ("THUMBS_UP"), kept for later removal.
	ReactionsSummary string
	ViewerReactions  []string
}

// IsGeneral reports whether the comment is an issue-level comment rather
// than a review thread comment.
func (c Comment) IsGeneral() bool { return c.Path == "" && c.ThreadID == "" }

// IsPending reports whether the comment belongs to an unsubmitted review.
func (c Comment) IsPending() bool { return c.State == StatePending }

// ViewerReacted reports whether the viewer already reacted with the kind.
func (c Comment) ViewerReacted(kind string) bool {
	for _, k := range c.ViewerReactions {
		if k == kind {
			return true
		}
	}
	return false
}

// FileStatus is the change kind of one file in the PR.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileRemoved  FileStatus = "removed"
	FileModified FileStatus = "modified"
	FileRenamed  FileStatus = "renamed"
	FileCopied   FileStatus = "copied"
)

// ChangedFile is one entry of the PR's changed-file list.
type ChangedFile struct {
	Path      string
	Status    FileStatus
	Additions int
	Deletions int
}

// PendingReview caches the identity of the viewer's unsubmitted review.
// It mirrors a server-side resource the server may silently invalidate, so
// it is advisory, never authoritative.
type PendingReview struct {
	ID         string
	DatabaseID int64
}

// reactionIcons maps GitHub's ReactionContent enum to display icons.
var reactionIcons = map[string]string{
	"THUMBS_UP":   "👍",
	"THUMBS_DOWN": "👎",
	"LAUGH":       "😄",
	"HOORAY":      "🎉",
	"CONFUSED":    "😕",
	"HEART":       "❤️",
	"ROCKET":      "🚀",
	"EYES":        "👀",
}

// ReactionKinds lists the reaction kinds a viewer may add, in picker order.
var ReactionKinds = []string{
	"THUMBS_UP", "THUMBS_DOWN", "LAUGH", "HOORAY",
	"CONFUSED", "HEART", "ROCKET", "EYES",
}

// ReactionIcon returns the display icon for a reaction kind, falling back
// to the raw kind name.
func ReactionIcon(kind string) string {
	if icon, ok := reactionIcons[kind]; ok {
		return icon
	}
	return strings.ToLower(kind)
}
