package review

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/perch/pkg/jsonwalk"
)

func payload(t *testing.T, raw string) jsonwalk.Value {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return jsonwalk.Wrap(v)
}

// pr42 mirrors a small but complete payload: two issue comments plus one
// two-comment thread on lib.go:10.
const pr42 = `{
  "id": "PR_42",
  "headRefOid": "head123",
  "baseRefOid": "base123",
  "comments": {"nodes": [
    {"id": "IC_1", "databaseId": 1, "body": "first general", "createdAt": "2026-01-01T10:00:00Z",
     "url": "https://x/1", "author": {"login": "alice"},
     "reactionGroups": [{"content": "THUMBS_UP", "viewerHasReacted": false, "reactors": {"totalCount": 3}},
                        {"content": "EYES", "viewerHasReacted": false, "reactors": {"totalCount": 0}}]},
    {"id": "IC_2", "databaseId": 2, "body": "second general", "createdAt": "2026-01-01T11:00:00Z",
     "url": "https://x/2", "author": {"login": "bob"}, "reactionGroups": []}
  ]},
  "reviews": {"nodes": []},
  "reviewThreads": {"nodes": [
    {"id": "RT_1", "path": "lib.go", "line": 10, "startLine": null, "originalLine": 10,
     "isResolved": false, "isOutdated": false,
     "comments": {"nodes": [
       {"id": "RC_1", "databaseId": 3, "body": "root", "createdAt": "2026-01-02T09:00:00Z",
        "url": "https://x/3", "author": {"login": "carol"}, "replyTo": null, "outdated": false,
        "diffHunk": "@@ -8,4 +8,6 @@", "originalCommit": {"oid": "abc"},
        "pullRequestReview": {"id": "PRR_1", "databaseId": 7, "state": "COMMENTED"},
        "reactionGroups": []},
       {"id": "RC_2", "databaseId": 4, "body": "reply", "createdAt": "2026-01-02T10:00:00Z",
        "url": "https://x/4", "author": {"login": "alice"}, "replyTo": {"id": "RC_1"}, "outdated": false,
        "diffHunk": "@@ -8,4 +8,6 @@", "originalCommit": {"oid": "abc"},
        "pullRequestReview": {"id": "PRR_1", "databaseId": 7, "state": "COMMENTED"},
        "reactionGroups": [{"content": "HEART", "viewerHasReacted": true, "reactors": {"totalCount": 1}}]}
     ]}}
  ]},
  "files": {"nodes": [
    {"path": "lib.go", "additions": 6, "deletions": 4, "changeType": "MODIFIED"},
    {"path": "new.go", "additions": 20, "deletions": 0, "changeType": "ADDED"}
  ]}
}`

func TestBuildComments_EndToEndScenario(t *testing.T) {
	pr := payload(t, pr42)
	comments := BuildComments(pr)
	require.Len(t, comments, 4)

	// Issue comments first (empty path), in insertion order.
	assert.Equal(t, "IC_1", comments[0].ID)
	assert.Equal(t, "IC_2", comments[1].ID)
	assert.True(t, comments[0].IsGeneral())

	// Thread comments follow, in creation order, sharing one thread id.
	assert.Equal(t, "RC_1", comments[2].ID)
	assert.Equal(t, "RC_2", comments[3].ID)
	assert.Equal(t, comments[2].ThreadID, comments[3].ThreadID)
	assert.Equal(t, "lib.go", comments[2].Path)
	assert.Equal(t, 10, comments[2].Line)

	assert.False(t, comments[2].IsReply)
	assert.True(t, comments[3].IsReply)
	assert.Equal(t, "RC_1", comments[3].ReplyTo)
	assert.Equal(t, "PRR_1", comments[3].ReviewID)
	assert.Equal(t, StateCommented, comments[3].State)
	assert.Equal(t, "abc", comments[3].OriginalCommit)
}

func TestBuildComments_Deterministic(t *testing.T) {
	pr := payload(t, pr42)

	first := BuildComments(pr)
	second := BuildComments(pr)
	assert.Equal(t, first, second)
}

func TestBuildComments_ThreadContiguity(t *testing.T) {
	raw := `{
	  "comments": {"nodes": []},
	  "reviewThreads": {"nodes": [
	    {"id": "RT_B", "path": "b.go", "line": 5, "comments": {"nodes": [
	      {"id": "B1", "createdAt": "2026-01-01T00:00:00Z"},
	      {"id": "B2", "createdAt": "2026-01-01T00:01:00Z"}]}},
	    {"id": "RT_A", "path": "a.go", "line": 9, "comments": {"nodes": [
	      {"id": "A1", "createdAt": "2026-01-02T00:00:00Z"},
	      {"id": "A2", "createdAt": "2026-01-02T00:01:00Z"},
	      {"id": "A3", "createdAt": "2026-01-02T00:02:00Z"}]}}
	  ]}
	}`
	comments := BuildComments(payload(t, raw))
	require.Len(t, comments, 5)

	// Members of each thread occupy consecutive positions.
	positions := map[string][]int{}
	for i, c := range comments {
		positions[c.ThreadID] = append(positions[c.ThreadID], i)
	}
	for threadID, idxs := range positions {
		for k := 1; k < len(idxs); k++ {
			assert.Equal(t, idxs[k-1]+1, idxs[k], "thread %s not contiguous", threadID)
		}
	}

	// a.go sorts before b.go.
	assert.Equal(t, "A1", comments[0].ID)
	assert.Equal(t, "B1", comments[3].ID)
}

func TestBuildComments_NullAuthorThreeLevelsDeep(t *testing.T) {
	raw := `{
	  "comments": {"nodes": [{"id": "IC_1", "author": null, "createdAt": "2026-01-01T00:00:00Z"}]},
	  "reviewThreads": {"nodes": [
	    {"id": "RT_1", "path": "x.go", "line": 1, "comments": {"nodes": [
	      {"id": "RC_1", "author": {"login": null}, "createdAt": "2026-01-01T00:00:00Z"}]}}
	  ]}
	}`
	comments := BuildComments(payload(t, raw))
	require.Len(t, comments, 2)
	assert.Equal(t, "unknown", comments[0].Author)
	assert.Equal(t, "unknown", comments[1].Author)
}

func TestBuildComments_LineFallbacks(t *testing.T) {
	raw := `{
	  "comments": {"nodes": []},
	  "reviewThreads": {"nodes": [
	    {"id": "RT_1", "path": "x.go", "line": null, "startLine": 4,
	     "comments": {"nodes": [{"id": "RC_1"}]}},
	    {"id": "RT_2", "path": "y.go", "line": null, "startLine": null,
	     "comments": {"nodes": [{"id": "RC_2"}]}},
	    {"id": "RT_3", "path": "z.go", "line": 7, "originalLine": null,
	     "comments": {"nodes": [{"id": "RC_3"}]}}
	  ]}
	}`
	comments := BuildComments(payload(t, raw))
	require.Len(t, comments, 3)

	byID := map[string]Comment{}
	for _, c := range comments {
		byID[c.ID] = c
	}
	assert.Equal(t, 4, byID["RC_1"].Line, "line falls back to startLine")
	assert.Equal(t, 0, byID["RC_2"].Line, "line falls back to zero")
	assert.Equal(t, 7, byID["RC_3"].OriginalLine, "originalLine falls back to line")
}

func TestBuildComments_OutdatedFromThreadOrComment(t *testing.T) {
	raw := `{
	  "comments": {"nodes": []},
	  "reviewThreads": {"nodes": [
	    {"id": "RT_1", "path": "x.go", "line": 1, "isOutdated": true,
	     "comments": {"nodes": [{"id": "RC_1", "outdated": false}]}},
	    {"id": "RT_2", "path": "y.go", "line": 1, "isOutdated": false,
	     "comments": {"nodes": [{"id": "RC_2", "outdated": true}]}}
	  ]}
	}`
	comments := BuildComments(payload(t, raw))
	require.Len(t, comments, 2)
	assert.True(t, comments[0].Outdated)
	assert.True(t, comments[1].Outdated)
}

func TestBuildReactions_Aggregation(t *testing.T) {
	pr := payload(t, pr42)
	comments := BuildComments(pr)

	// THUMBS_UP count 3 produces a counted token; EYES count 0 produces none.
	assert.Equal(t, "👍3", comments[0].ReactionsSummary)
	assert.Empty(t, comments[0].ViewerReactions)

	// Single reaction has no count suffix; viewer kind is recorded.
	assert.Equal(t, "❤️", comments[3].ReactionsSummary)
	assert.Equal(t, []string{"HEART"}, comments[3].ViewerReactions)
	assert.True(t, comments[3].ViewerReacted("HEART"))
	assert.False(t, comments[3].ViewerReacted("EYES"))
}

func TestBuildFiles(t *testing.T) {
	files := BuildFiles(payload(t, pr42))
	require.Len(t, files, 2)
	assert.Equal(t, ChangedFile{Path: "lib.go", Status: FileModified, Additions: 6, Deletions: 4}, files[0])
	assert.Equal(t, FileAdded, files[1].Status)
}

func TestFindPendingReview(t *testing.T) {
	assert.Nil(t, FindPendingReview(payload(t, pr42)))

	raw := `{"reviews": {"nodes": [
	  {"id": "PRR_old", "databaseId": 1, "state": "APPROVED"},
	  {"id": "PRR_pending", "databaseId": 2, "state": "PENDING"}
	]}}`
	pending := FindPendingReview(payload(t, raw))
	require.NotNil(t, pending)
	assert.Equal(t, "PRR_pending", pending.ID)
	assert.Equal(t, int64(2), pending.DatabaseID)
}
