package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/perch/internal/ui"
)

// panel is the state behind one display-host handle. Bubble Tea re-renders
// the whole screen from state, so a panel is just its content plus a cursor;
// geometry is resolved at view time.
type panel struct {
	kind    ui.PanelKind
	region  ui.RegionHint
	lines   []string
	cursor  int // 0-based row within lines
	offset  int // first visible row
	actions map[string]func()
}

// EntityMapper translates a 0-based panel row into a 1-based entity index.
type EntityMapper func(line int) int

// Host implements ui.DisplayHost on top of Bubble Tea state. Panels are
// created and destroyed by the layout reconciler; the model renders whatever
// set is live.
//
// Session operations update panel content from their own goroutines while
// the event loop renders and moves cursors, so mu guards all panel state.
// Mappers and action callbacks reach back into the session; they are always
// invoked with mu released.
type Host struct {
	mu      sync.Mutex
	next    ui.PanelHandle
	panels  map[ui.PanelHandle]*panel
	mappers map[ui.PanelKind]EntityMapper

	width  int
	height int
	focus  ui.PanelHandle
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{
		panels:  make(map[ui.PanelHandle]*panel),
		mappers: make(map[ui.PanelKind]EntityMapper),
	}
}

// CreatePanel opens a panel. Creating a kind that is already open replaces
// nothing; the reconciler is responsible for closing stale handles first.
func (h *Host) CreatePanel(kind ui.PanelKind, region ui.RegionHint) (ui.PanelHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.panels[h.next] = &panel{
		kind:    kind,
		region:  region,
		actions: make(map[string]func()),
	}
	if h.focus == 0 {
		h.focus = h.next
	}
	return h.next, nil
}

// SetPanelContent replaces a panel's lines and clamps its cursor.
func (h *Host) SetPanelContent(handle ui.PanelHandle, lines []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.panels[handle]
	if !ok {
		return
	}
	p.lines = lines
	if p.cursor >= len(lines) {
		p.cursor = len(lines) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

// ClosePanel destroys a panel. Unknown handles are ignored.
func (h *Host) ClosePanel(handle ui.PanelHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.panels, handle)
	if h.focus == handle {
		h.focus = h.firstHandle()
	}
}

// PanelExists reports whether the handle names a live panel.
func (h *Host) PanelExists(handle ui.PanelHandle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.panels[handle]
	return ok
}

// MapCursorToEntity resolves a panel row through the mapper registered for
// the panel's kind. Without a mapper every row maps to nothing.
func (h *Host) MapCursorToEntity(handle ui.PanelHandle, line int) int {
	h.mu.Lock()
	p, ok := h.panels[handle]
	if !ok {
		h.mu.Unlock()
		return 0
	}
	m, ok := h.mappers[p.kind]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	return m(line)
}

// RegisterAction binds a key on the panel.
func (h *Host) RegisterAction(handle ui.PanelHandle, key string, fn func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.panels[handle]
	if !ok {
		return nil
	}
	p.actions[key] = fn
	return nil
}

// SetMapper installs the row-to-entity translation for a panel kind. The
// mapper survives panel recreation.
func (h *Host) SetMapper(kind ui.PanelKind, m EntityMapper) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mappers[kind] = m
}

// SetSize records the terminal dimensions for the next render.
func (h *Host) SetSize(width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.width = width
	h.height = height
}

// Focused returns the panel that currently receives panel-local keys.
func (h *Host) Focused() ui.PanelHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focus
}

// FocusedKind returns the focused panel's kind, or "".
func (h *Host) FocusedKind() ui.PanelKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.panels[h.focus]; ok {
		return p.kind
	}
	return ""
}

// FocusKind moves focus to the open panel of the given kind, if any.
func (h *Host) FocusKind(kind ui.PanelKind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for handle, p := range h.panels {
		if p.kind == kind {
			h.focus = handle
			return
		}
	}
}

// CycleFocus moves focus to the next open panel in layout order.
func (h *Host) CycleFocus() {
	h.mu.Lock()
	defer h.mu.Unlock()

	order := h.layoutOrder()
	if len(order) == 0 {
		return
	}
	for i, handle := range order {
		if handle == h.focus {
			h.focus = order[(i+1)%len(order)]
			return
		}
	}
	h.focus = order[0]
}

// HandleKey dispatches a key to the focused panel's registered actions.
// Returns true when the key was consumed.
func (h *Host) HandleKey(key string) bool {
	h.mu.Lock()
	p, ok := h.panels[h.focus]
	if !ok {
		h.mu.Unlock()
		return false
	}
	fn, ok := p.actions[key]
	h.mu.Unlock()
	if !ok {
		return false
	}
	fn()
	return true
}

// MoveCursor shifts the focused panel's cursor by delta, clamped.
func (h *Host) MoveCursor(delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.panels[h.focus]
	if !ok || len(p.lines) == 0 {
		return
	}
	p.cursor += delta
	if p.cursor < 0 {
		p.cursor = 0
	}
	if p.cursor >= len(p.lines) {
		p.cursor = len(p.lines) - 1
	}
}

// CursorRow returns the focused panel's 0-based cursor row.
func (h *Host) CursorRow() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.panels[h.focus]; ok {
		return p.cursor
	}
	return 0
}

// CursorEntity maps the focused panel's cursor row to its entity index.
func (h *Host) CursorEntity() int {
	h.mu.Lock()
	p, ok := h.panels[h.focus]
	if !ok {
		h.mu.Unlock()
		return 0
	}
	row := p.cursor
	m, ok := h.mappers[p.kind]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	return m(row)
}

// firstHandle returns the first live handle in layout order; callers hold mu.
func (h *Host) firstHandle() ui.PanelHandle {
	for _, handle := range h.layoutOrder() {
		return handle
	}
	return 0
}

// layoutOrder returns live handles in visual order: files, old pane, new
// pane, comments. Callers hold mu.
func (h *Host) layoutOrder() []ui.PanelHandle {
	var out []ui.PanelHandle
	for _, kind := range []ui.PanelKind{ui.PanelFileList, ui.PanelDiffOld, ui.PanelDiffNew, ui.PanelComments} {
		for handle, p := range h.panels {
			if p.kind == kind {
				out = append(out, handle)
				break
			}
		}
	}
	return out
}

// View renders the live panel set: file list on the left, diff panes beside
// it, comment panel across the bottom.
func (h *Host) View() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.width == 0 {
		return ""
	}

	var files, diffOld, diffNew, comments string
	topHeight := h.height * 2 / 3
	bottomHeight := h.height - topHeight

	for handle, p := range h.panels {
		focused := handle == h.focus
		switch p.kind {
		case ui.PanelFileList:
			files = h.renderPanel(p, h.width/4, topHeight, focused)
		case ui.PanelDiffOld:
			diffOld = h.renderPanel(p, (h.width-h.width/4)/2, topHeight, focused)
		case ui.PanelDiffNew:
			diffNew = h.renderPanel(p, (h.width-h.width/4)/2, topHeight, focused)
		case ui.PanelComments:
			comments = h.renderPanel(p, h.width, bottomHeight, focused)
		}
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, files, diffOld, diffNew)
	if comments == "" {
		return top
	}
	return lipgloss.JoinVertical(lipgloss.Left, top, comments)
}

func (h *Host) renderPanel(p *panel, width, height int, focused bool) string {
	inner := height - 3 // border rows plus title
	if inner < 1 {
		inner = 1
	}

	// Keep the cursor visible.
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+inner {
		p.offset = p.cursor - inner + 1
	}

	var b strings.Builder
	b.WriteString(panelTitle.Render(panelTitles[string(p.kind)]))
	b.WriteString("\n")
	for i := p.offset; i < len(p.lines) && i < p.offset+inner; i++ {
		line := p.lines[i]
		if i == p.cursor && focused {
			line = cursorLine.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := panelBorder
	if focused {
		style = panelBorderFocused
	}
	return style.Width(width - 2).Height(height - 2).Render(strings.TrimSuffix(b.String(), "\n"))
}
