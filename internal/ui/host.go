// Package ui reconciles the review session's panel set against a display
// host. The engine never draws; it creates panels through DisplayHost and
// pushes line content into them.
package ui

// PanelHandle identifies a live panel. The zero handle is "no panel".
type PanelHandle int

// PanelKind names the four panels a review session uses.
type PanelKind string

const (
	PanelFileList PanelKind = "files"
	PanelDiffOld  PanelKind = "diff-old"
	PanelDiffNew  PanelKind = "diff-new"
	PanelComments PanelKind = "comments"
)

// RegionHint tells the host roughly where a panel belongs. Hosts are free
// to interpret hints loosely; exact geometry is theirs.
type RegionHint string

const (
	RegionLeft        RegionHint = "left"
	RegionCenterLeft  RegionHint = "center-left"
	RegionCenterRight RegionHint = "center-right"
	RegionBottom      RegionHint = "bottom"
)

// DisplayHost is the surface the reconciler drives. Implementations own
// screen real estate, rendering, and input; the engine owns content and
// panel lifecycle decisions.
type DisplayHost interface {
	// CreatePanel opens a new panel of the given kind and returns its handle.
	CreatePanel(kind PanelKind, region RegionHint) (PanelHandle, error)
	// SetPanelContent replaces the panel's lines wholesale.
	SetPanelContent(h PanelHandle, lines []string)
	// ClosePanel destroys the panel. Closing an unknown handle is a no-op.
	ClosePanel(h PanelHandle)
	// PanelExists reports whether the handle still names a live panel; the
	// host may close panels behind the engine's back.
	PanelExists(h PanelHandle) bool
	// MapCursorToEntity translates a 0-based panel row into the 1-based
	// index of the entity rendered there, or 0 for padding rows.
	MapCursorToEntity(h PanelHandle, line int) int
	// RegisterAction binds a key on the panel to a callback.
	RegisterAction(h PanelHandle, key string, fn func()) error
}
