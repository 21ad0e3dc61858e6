package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/perch/internal/core/diffview"
	"github.com/colonyops/perch/internal/core/gh"
	"github.com/colonyops/perch/internal/core/git"
	"github.com/colonyops/perch/internal/core/logging"
	"github.com/colonyops/perch/pkg/jsonwalk"
)

// Guard-condition sentinels. These are precondition failures, not faults:
// callers convert them to user notices and carry on.
var (
	ErrNoPR         = errors.New("no pull request loaded")
	ErrNoMergeBase  = errors.New("merge base unknown")
	ErrOutOfRange   = errors.New("index out of range")
	ErrPanelClosed  = errors.New("panel is not open")
	ErrNoSelection  = errors.New("no comment selected")
	ErrFileNotFound = errors.New("file not in this pull request")
)

// API is the GitHub surface the session consumes.
type API interface {
	PendingAPI
	FetchPullRequest(ctx context.Context, owner, repo string, number int) (jsonwalk.Value, error)
	AddReviewThread(ctx context.Context, reviewID, path string, line int, side gh.DiffSide, body string) error
	AddReviewReply(ctx context.Context, reviewID, inReplyTo, body string) error
	AddIssueComment(ctx context.Context, subjectID, body string) error
	UpdateComment(ctx context.Context, id, body string) error
	DeleteComment(ctx context.Context, id string) error
	SubmitReview(ctx context.Context, reviewID string, event gh.ReviewEvent) error
	AddReaction(ctx context.Context, subjectID, content string) error
	RemoveReaction(ctx context.Context, subjectID, content string) error
}

// Surface is the slice of the display layer the session drives. The
// reconciler behind it owns panel lifecycles; the session only pushes
// content and checks presence.
type Surface interface {
	Restore() error
	FileListOpen() bool
	CommentsOpen() bool
	SetFiles(lines []string)
	SetDiff(panes diffview.Panes)
	SetComments(lines []string)
	CloseComments()
	Teardown()
}

// Notifier delivers user-visible notices.
type Notifier interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Options wires a session's collaborators.
type Options struct {
	API      API
	Git      git.Git
	Dir      string // local working directory of the repository
	Remote   string // git remote the PR's commits are fetched from
	Surface  Surface
	Notifier Notifier
}

// Session is the aggregate root of one PR review: the normalized comment
// and file lists, the cursors over them, the pending review cache, and the
// panel state. Comments and files are wholesale-replaced on every load;
// callers re-derive selection from the cursors, never from identity.
//
// All exported methods are safe for concurrent use: operations run on
// background goroutines while the event loop navigates and reads, so every
// method takes mu before touching session state.
type Session struct {
	Owner  string
	Repo   string
	Number int

	api     API
	git     git.Git
	dir     string
	remote  string
	surface Surface
	notify  Notifier
	pending *PendingManager
	log     zerolog.Logger

	mu sync.Mutex

	prID      string
	headSHA   string
	baseSHA   string
	mergeBase string

	comments []Comment
	files    []ChangedFile

	// Cursors are 1-based; zero means no selection.
	currentFile    int
	currentComment int

	// submitted is the optimistic flag callers consult to decide whether
	// an input buffer can be discarded; rolled back on mutation failure.
	submitted bool
}

// NewSession creates an unloaded session for one pull request.
func NewSession(owner, repo string, number int, opts Options) *Session {
	return &Session{
		Owner:   owner,
		Repo:    repo,
		Number:  number,
		api:     opts.API,
		git:     opts.Git,
		dir:     opts.Dir,
		remote:  opts.Remote,
		surface: opts.Surface,
		notify:  opts.Notifier,
		pending: NewPendingManager(opts.API),
		log:     logging.Component("session"),
	}
}

// Loaded reports whether a PR payload has been fetched into the session.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded()
}

func (s *Session) loaded() bool { return s.prID != "" }

// Comments returns the normalized comment list in its contract order.
// The returned slice is replaced wholesale on reload, never mutated.
func (s *Session) Comments() []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments
}

// Files returns the PR's changed files.
func (s *Session) Files() []ChangedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files
}

// Pending returns the cached pending review, or nil.
func (s *Session) Pending() *PendingReview { return s.pending.Cached() }

// MergeBase returns the merge base commit, empty when unresolved.
func (s *Session) MergeBase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeBase
}

// Submitted reports whether the last mutation's input was accepted; the
// caller may discard its input buffer only when this is true.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// CurrentComment returns the selected comment, or nil when none.
func (s *Session) CurrentComment() *Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected()
}

// selected resolves the comment cursor; callers hold mu.
func (s *Session) selected() *Comment {
	if s.currentComment < 1 || s.currentComment > len(s.comments) {
		return nil
	}
	c := s.comments[s.currentComment-1]
	return &c
}

// CurrentCommentIndex returns the 1-based comment cursor (0 = none).
func (s *Session) CurrentCommentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentComment
}

// CurrentFile returns the selected file, or nil when none.
func (s *Session) CurrentFile() *ChangedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentFile < 1 || s.currentFile > len(s.files) {
		return nil
	}
	f := s.files[s.currentFile-1]
	return &f
}

// CurrentFileIndex returns the 1-based file cursor (0 = none).
func (s *Session) CurrentFileIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentFile
}

// Load fetches the PR payload, rebuilds the comment and file models,
// resolves the merge base, and presents everything through the surface.
func (s *Session) Load(ctx context.Context) error {
	pr, err := s.api.FetchPullRequest(ctx, s.Owner, s.Repo, s.Number)
	if err != nil {
		s.notify.Errorf("load PR #%d: %s", s.Number, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prID = pr.Get("id").StringOr("")
	s.headSHA = pr.Get("headRefOid").StringOr("")
	s.baseSHA = pr.Get("baseRefOid").StringOr("")
	s.comments = BuildComments(pr)
	s.files = BuildFiles(pr)

	if p := FindPendingReview(pr); p != nil {
		s.pending.Set(*p)
	} else {
		s.pending.Clear()
	}

	s.clampCursors()
	s.resolveMergeBase(ctx)

	if err := s.surface.Restore(); err != nil {
		return fmt.Errorf("restore layout: %w", err)
	}
	s.present()

	s.log.Info().
		Int("comments", len(s.comments)).
		Int("files", len(s.files)).
		Str("merge_base", s.mergeBase).
		Msg("session loaded")
	return nil
}

// Reload refreshes the models without stealing focus or recreating panels.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

func (s *Session) reload(ctx context.Context) error {
	if !s.loaded() {
		s.notify.Warnf("no pull request loaded")
		return ErrNoPR
	}

	pr, err := s.api.FetchPullRequest(ctx, s.Owner, s.Repo, s.Number)
	if err != nil {
		s.notify.Errorf("reload PR #%d: %s", s.Number, err)
		return err
	}

	s.comments = BuildComments(pr)
	s.files = BuildFiles(pr)
	if p := FindPendingReview(pr); p != nil {
		s.pending.Set(*p)
	} else {
		s.pending.Clear()
	}

	s.clampCursors()
	s.present()
	return nil
}

// resolveMergeBase fetches the remote and computes the merge base of the
// PR's base and head. Failure leaves the merge base empty: diffs are
// unavailable but the rest of the session still works.
func (s *Session) resolveMergeBase(ctx context.Context) {
	if s.git == nil || s.dir == "" || s.baseSHA == "" || s.headSHA == "" {
		return
	}

	if err := s.git.Fetch(ctx, s.dir, s.remote); err != nil {
		s.log.Warn().Err(err).Msg("fetch before merge-base failed")
	}

	mb, err := s.git.MergeBase(ctx, s.dir, s.baseSHA, s.headSHA)
	if err != nil {
		s.log.Warn().Err(err).Msg("merge-base failed")
		s.notify.Warnf("merge base unavailable: %s", err)
		s.mergeBase = ""
		return
	}
	s.mergeBase = mb
}

func (s *Session) clampCursors() {
	if s.currentComment > len(s.comments) {
		s.currentComment = len(s.comments)
	}
	if s.currentFile > len(s.files) {
		s.currentFile = len(s.files)
	}
}

// present pushes the current models into whatever panels are open.
func (s *Session) present() {
	if s.surface.FileListOpen() {
		s.surface.SetFiles(FormatFileLines(s.files, s.currentFile))
	}
	if s.surface.CommentsOpen() {
		s.surface.SetComments(FormatCommentLines(s.comments, s.currentComment))
	}
}

// NextFile advances the file cursor and opens the diff, or notifies at the
// boundary.
func (s *Session) NextFile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded() {
		s.notify.Warnf("no pull request loaded")
		return ErrNoPR
	}
	if len(s.files) == 0 {
		s.notify.Infof("no files changed")
		return nil
	}
	if s.currentFile >= len(s.files) {
		s.notify.Infof("already at the last file")
		return nil
	}
	return s.openFileDiff(ctx, s.currentFile+1)
}

// PrevFile moves the file cursor back and opens the diff, or notifies at
// the boundary.
func (s *Session) PrevFile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded() {
		s.notify.Warnf("no pull request loaded")
		return ErrNoPR
	}
	if len(s.files) == 0 {
		s.notify.Infof("no files changed")
		return nil
	}
	if s.currentFile <= 1 {
		s.notify.Infof("already at the first file")
		return nil
	}
	return s.openFileDiff(ctx, s.currentFile-1)
}

// NextComment advances the comment cursor, or notifies at the boundary.
func (s *Session) NextComment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.comments) == 0 {
		s.notify.Infof("no comments")
		return
	}
	if s.currentComment >= len(s.comments) {
		s.notify.Infof("already at the last comment")
		return
	}
	s.currentComment++
	s.present()
}

// PrevComment moves the comment cursor back, or notifies at the boundary.
func (s *Session) PrevComment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.comments) == 0 {
		s.notify.Infof("no comments")
		return
	}
	if s.currentComment <= 1 {
		s.notify.Infof("already at the first comment")
		return
	}
	s.currentComment--
	s.present()
}

// SelectComment moves the comment cursor to a specific 1-based index,
// typically derived from a panel cursor position.
func (s *Session) SelectComment(idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 1 || idx > len(s.comments) {
		return ErrOutOfRange
	}
	s.currentComment = idx
	return nil
}

// SelectFileByPath finds the file whose path matches exactly.
// Returns the 1-based index.
func (s *Session) SelectFileByPath(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectFileByPath(path)
}

func (s *Session) selectFileByPath(path string) (int, error) {
	if len(s.files) == 0 {
		return 0, ErrFileNotFound
	}
	for i, f := range s.files {
		if f.Path == path {
			return i + 1, nil
		}
	}
	return 0, ErrFileNotFound
}

// OpenFileDiff loads the diff panes for the idx-th file. Every guard
// failure returns an error without touching state: out-of-range index,
// unknown merge base, or a closed file-list panel all mean the session is
// not ready to show a diff.
func (s *Session) OpenFileDiff(ctx context.Context, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openFileDiff(ctx, idx)
}

func (s *Session) openFileDiff(ctx context.Context, idx int) error {
	if idx < 1 || idx > len(s.files) {
		s.notify.Warnf("no such file")
		return ErrOutOfRange
	}
	if s.mergeBase == "" {
		s.notify.Warnf("merge base unknown; cannot open diff")
		return ErrNoMergeBase
	}
	if !s.surface.FileListOpen() {
		s.notify.Warnf("file panel is closed")
		return ErrPanelClosed
	}

	file := s.files[idx-1]
	panes, err := s.loadPanes(ctx, file.Path)
	if err != nil {
		s.notify.Errorf("open diff for %s: %s", file.Path, err)
		return err
	}

	s.currentFile = idx
	s.surface.SetDiff(panes)
	s.surface.SetFiles(FormatFileLines(s.files, s.currentFile))
	return nil
}

// ReloadFile re-opens the current file's diff.
func (s *Session) ReloadFile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentFile == 0 {
		s.notify.Warnf("no file selected")
		return ErrOutOfRange
	}
	return s.openFileDiff(ctx, s.currentFile)
}

func (s *Session) loadPanes(ctx context.Context, path string) (diffview.Panes, error) {
	text, err := s.git.DiffFile(ctx, s.dir, s.mergeBase, s.headSHA, path)
	if err == nil {
		panes, perr := diffview.Build(text)
		if perr == nil {
			return panes, nil
		}
		if !errors.Is(perr, diffview.ErrEmptyDiff) {
			return diffview.Panes{}, perr
		}
	}

	// No parseable diff: show both full versions instead.
	oldContent, oerr := s.git.ShowFile(ctx, s.dir, s.mergeBase, path)
	if oerr != nil {
		return diffview.Panes{}, oerr
	}
	newContent, nerr := s.git.ShowFile(ctx, s.dir, s.headSHA, path)
	if nerr != nil {
		return diffview.Panes{}, nerr
	}
	return diffview.FromContents(oldContent, newContent), nil
}

// GotoCommentFile jumps from the selected comment to its file's diff.
func (s *Session) GotoCommentFile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.selected()
	if c == nil {
		s.notify.Warnf("no comment selected")
		return ErrNoSelection
	}
	if c.Path == "" {
		s.notify.Infof("general comments have no file")
		return nil
	}

	idx, err := s.selectFileByPath(c.Path)
	if err != nil {
		s.notify.Warnf("%s is not in this pull request", c.Path)
		return err
	}
	return s.openFileDiff(ctx, idx)
}

func (s *Session) ref() PRRef {
	return PRRef{Owner: s.Owner, Repo: s.Repo, Number: s.Number, NodeID: s.prID}
}

// mutate wraps every comment mutation: guard on a loaded PR, set the
// optimistic submitted flag, roll it back on failure, reload on success.
// Callers hold mu.
func (s *Session) mutate(ctx context.Context, op string, fn func() error) error {
	if !s.loaded() {
		s.notify.Warnf("no pull request loaded")
		return ErrNoPR
	}

	s.submitted = true
	if err := fn(); err != nil {
		s.submitted = false
		s.notify.Errorf("%s: %s", op, err)
		return err
	}

	if err := s.reload(ctx); err != nil {
		// The mutation landed; only the refresh failed.
		s.log.Warn().Err(err).Str("op", op).Msg("reload after mutation failed")
	}
	return nil
}

// AddComment starts a new review thread on path:line under the viewer's
// pending review, creating the review if needed.
func (s *Session) AddComment(ctx context.Context, path string, line int, side gh.DiffSide, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, "add comment", func() error {
		return s.pending.Run(ctx, s.ref(), func(reviewID string) error {
			return s.api.AddReviewThread(ctx, reviewID, path, line, side, body)
		})
	})
}

// AddGeneralComment adds an issue-level comment to the PR.
func (s *Session) AddGeneralComment(ctx context.Context, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addGeneralComment(ctx, body)
}

func (s *Session) addGeneralComment(ctx context.Context, body string) error {
	return s.mutate(ctx, "add general comment", func() error {
		return s.api.AddIssueComment(ctx, s.prID, body)
	})
}

// Reply answers the selected comment: review-thread comments get a reply
// under the pending review, general comments get another issue comment.
func (s *Session) Reply(ctx context.Context, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.selected()
	if c == nil {
		s.notify.Warnf("no comment selected")
		return ErrNoSelection
	}

	if c.IsGeneral() {
		return s.addGeneralComment(ctx, body)
	}
	target := *c
	return s.mutate(ctx, "reply", func() error {
		return s.pending.Run(ctx, s.ref(), func(reviewID string) error {
			return s.api.AddReviewReply(ctx, reviewID, target.ID, body)
		})
	})
}

// EditComment replaces the selected comment's body.
func (s *Session) EditComment(ctx context.Context, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.selected()
	if c == nil {
		s.notify.Warnf("no comment selected")
		return ErrNoSelection
	}
	target := *c
	return s.mutate(ctx, "edit comment", func() error {
		return s.api.UpdateComment(ctx, target.ID, body)
	})
}

// DeleteComment removes the selected comment. Deleting a PENDING comment
// conservatively drops the cached pending review, since the server may
// have deleted the review along with its last comment.
func (s *Session) DeleteComment(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.selected()
	if c == nil {
		s.notify.Warnf("no comment selected")
		return ErrNoSelection
	}
	target := *c
	return s.mutate(ctx, "delete comment", func() error {
		if err := s.api.DeleteComment(ctx, target.ID); err != nil {
			return err
		}
		s.pending.InvalidateIfPending(target.State)
		return nil
	})
}

// React adds the viewer's reaction to the selected comment.
func (s *Session) React(ctx context.Context, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.selected()
	if c == nil {
		s.notify.Warnf("no comment selected")
		return ErrNoSelection
	}
	target := *c
	return s.mutate(ctx, "react", func() error {
		return s.api.AddReaction(ctx, target.ID, kind)
	})
}

// Unreact removes one of the viewer's own reactions from the selected
// comment.
func (s *Session) Unreact(ctx context.Context, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.selected()
	if c == nil {
		s.notify.Warnf("no comment selected")
		return ErrNoSelection
	}
	if !c.ViewerReacted(kind) {
		s.notify.Infof("you have not reacted with %s", ReactionIcon(kind))
		return nil
	}
	target := *c
	return s.mutate(ctx, "remove reaction", func() error {
		return s.api.RemoveReaction(ctx, target.ID, kind)
	})
}

// SubmitReview finalizes the pending review, creating one first when none
// is cached, and clears the cache on success.
func (s *Session) SubmitReview(ctx context.Context, event gh.ReviewEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded() {
		s.notify.Warnf("no pull request loaded")
		return ErrNoPR
	}

	rev, err := s.pending.GetOrCreate(ctx, s.ref())
	if err != nil {
		s.notify.Errorf("submit review: %s", err)
		return err
	}

	s.submitted = true
	if err := s.api.SubmitReview(ctx, rev.ID, event); err != nil {
		s.submitted = false
		s.notify.Errorf("submit review: %s", err)
		return err
	}

	s.pending.Clear()
	s.notify.Infof("review submitted: %s", event)
	if err := s.reload(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reload after submit failed")
	}
	return nil
}

// CloseComments closes just the comment panel; the selection is kept so a
// later restore comes back where the reviewer left off.
func (s *Session) CloseComments() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface.CloseComments()
}

// Close tears the session down: panels closed, all fields reset. The
// session is not reusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.surface.Teardown()
	s.prID = ""
	s.headSHA = ""
	s.baseSHA = ""
	s.mergeBase = ""
	s.comments = nil
	s.files = nil
	s.currentFile = 0
	s.currentComment = 0
	s.pending.Clear()
	s.log.Info().Msg("session closed")
}
