package ui

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/perch/internal/core/diffview"
	"github.com/colonyops/perch/internal/core/logging"
)

type binding struct {
	key string
	fn  func()
}

// Layout reconciles the review panel set: a file list on the left, two
// diff panes beside it, and a comment panel below. Restore recreates
// exactly the panels that are missing and never touches live ones. Key
// bindings registered through Bind survive recreation.
type Layout struct {
	host DisplayHost
	log  zerolog.Logger

	files    PanelHandle
	diffOld  PanelHandle
	diffNew  PanelHandle
	comments PanelHandle

	bindings map[PanelKind][]binding
}

// NewLayout creates a reconciler with no panels open.
func NewLayout(host DisplayHost) *Layout {
	return &Layout{
		host:     host,
		log:      logging.Component("layout"),
		bindings: make(map[PanelKind][]binding),
	}
}

// Restore brings the panel set back to fully-open. Missing panels are
// created in dependency order: the file list first, because the diff panes
// sit inside its geometry, then the diff panes, then the comment panel.
// A missing file list forces the nested panels to be torn down and
// recreated, since they cannot be reparented. Calling Restore when every
// panel is live does nothing.
func (l *Layout) Restore() error {
	if !l.open(l.files) {
		l.closePanel(&l.diffOld)
		l.closePanel(&l.diffNew)
		l.closePanel(&l.comments)
		if err := l.create(&l.files, PanelFileList, RegionLeft); err != nil {
			return err
		}
	}
	if err := l.create(&l.diffOld, PanelDiffOld, RegionCenterLeft); err != nil {
		return err
	}
	if err := l.create(&l.diffNew, PanelDiffNew, RegionCenterRight); err != nil {
		return err
	}
	return l.create(&l.comments, PanelComments, RegionBottom)
}

// create opens the panel unless its handle is still live, then re-applies
// the kind's bindings.
func (l *Layout) create(h *PanelHandle, kind PanelKind, region RegionHint) error {
	if l.open(*h) {
		return nil
	}
	handle, err := l.host.CreatePanel(kind, region)
	if err != nil {
		return fmt.Errorf("create %s panel: %w", kind, err)
	}
	*h = handle
	for _, b := range l.bindings[kind] {
		if err := l.host.RegisterAction(handle, b.key, b.fn); err != nil {
			return fmt.Errorf("bind %q on %s panel: %w", b.key, kind, err)
		}
	}
	l.log.Debug().Str("kind", string(kind)).Int("handle", int(handle)).Msg("panel created")
	return nil
}

func (l *Layout) open(h PanelHandle) bool {
	return h != 0 && l.host.PanelExists(h)
}

func (l *Layout) closePanel(h *PanelHandle) {
	if l.open(*h) {
		l.host.ClosePanel(*h)
	}
	*h = 0
}

// Bind registers a key on a panel kind. The binding applies to the live
// panel immediately (if open) and is re-registered every time the panel is
// recreated.
func (l *Layout) Bind(kind PanelKind, key string, fn func()) error {
	l.bindings[kind] = append(l.bindings[kind], binding{key: key, fn: fn})
	if h := l.handleFor(kind); l.open(h) {
		return l.host.RegisterAction(h, key, fn)
	}
	return nil
}

func (l *Layout) handleFor(kind PanelKind) PanelHandle {
	switch kind {
	case PanelFileList:
		return l.files
	case PanelDiffOld:
		return l.diffOld
	case PanelDiffNew:
		return l.diffNew
	case PanelComments:
		return l.comments
	}
	return 0
}

// FileListOpen reports whether the file-list panel is live.
func (l *Layout) FileListOpen() bool { return l.open(l.files) }

// CommentsOpen reports whether the comment panel is live.
func (l *Layout) CommentsOpen() bool { return l.open(l.comments) }

// SetFiles replaces the file-list content.
func (l *Layout) SetFiles(lines []string) {
	if l.open(l.files) {
		l.host.SetPanelContent(l.files, lines)
	}
}

// SetDiff renders the aligned panes with line-number gutters into the two
// diff panels.
func (l *Layout) SetDiff(panes diffview.Panes) {
	if l.open(l.diffOld) {
		l.host.SetPanelContent(l.diffOld, renderPane(panes.Old, panes.OldNums))
	}
	if l.open(l.diffNew) {
		l.host.SetPanelContent(l.diffNew, renderPane(panes.New, panes.NewNums))
	}
}

// SetComments replaces the comment panel content.
func (l *Layout) SetComments(lines []string) {
	if l.open(l.comments) {
		l.host.SetPanelContent(l.comments, lines)
	}
}

// CloseComments closes just the comment panel; a later Restore brings it
// back without disturbing the others.
func (l *Layout) CloseComments() {
	l.closePanel(&l.comments)
}

// Teardown closes every panel, nested ones first.
func (l *Layout) Teardown() {
	l.closePanel(&l.comments)
	l.closePanel(&l.diffNew)
	l.closePanel(&l.diffOld)
	l.closePanel(&l.files)
}

// EntityAt maps a 0-based cursor row in the given panel to the 1-based
// index of the entity rendered there, or 0.
func (l *Layout) EntityAt(kind PanelKind, line int) int {
	h := l.handleFor(kind)
	if !l.open(h) {
		return 0
	}
	return l.host.MapCursorToEntity(h, line)
}

// renderPane prefixes each row with its file line number; filler rows and
// hunk headers get a blank gutter.
func renderPane(lines []string, nums []int) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if i < len(nums) && nums[i] > 0 {
			out[i] = fmt.Sprintf("%4d %s", nums[i], line)
		} else {
			out[i] = "     " + line
		}
	}
	return out
}
