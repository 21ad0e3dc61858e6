package tui

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/colonyops/perch/internal/core/config"
	"github.com/colonyops/perch/internal/core/diffview"
	"github.com/colonyops/perch/internal/core/gh"
	"github.com/colonyops/perch/internal/core/logging"
	notifycore "github.com/colonyops/perch/internal/core/notify"
	"github.com/colonyops/perch/internal/core/review"
	"github.com/colonyops/perch/internal/tui/notify"
	"github.com/colonyops/perch/internal/ui"
)

type mode int

const (
	modeNormal mode = iota
	modeInput
	modeConfirm
	modePicker
	modeDetail
)

// opDoneMsg reports a session operation finishing; err is informational,
// the session has already routed it to the bus.
type opDoneMsg struct{ err error }

// noticeMsg carries a bus notification into the Update loop.
type noticeMsg notifycore.Notification

// Model is the Bubble Tea model for one review session.
type Model struct {
	session *review.Session
	host    *Host
	bus     *notify.Bus
	notices chan notifycore.Notification
	keys    map[string]config.Keybinding
	log     zerolog.Logger

	mode    mode
	pending string // multi-key sequence buffer
	busy    bool   // one session operation in flight at a time

	input       textarea.Model
	inputAction string
	inputTitle  string

	confirmPrompt string
	confirmAction string

	pickerKinds  []string
	pickerCursor int
	pickerRemove bool

	detail string

	// panes is written by the session's operation goroutine (via the
	// surface hook) and read on the event loop, so it has its own lock.
	panesMu sync.Mutex
	panes   diffview.Panes

	notice notifycore.Notification

	width  int
	height int
}

// Surface is what a session should be constructed with: the layout plus a
// hook that lets the model see each diff's line anchors for comment
// placement. The hook is attached by New, after the session exists.
type Surface struct {
	*ui.Layout
	onDiff func(diffview.Panes)
}

// NewSurface wraps a layout for use as a session's Surface.
func NewSurface(layout *ui.Layout) *Surface {
	return &Surface{Layout: layout}
}

func (s *Surface) SetDiff(panes diffview.Panes) {
	if s.onDiff != nil {
		s.onDiff(panes)
	}
	s.Layout.SetDiff(panes)
}

// New wires a model around an unloaded session. The session must have been
// constructed with surface as its Surface and bus as its Notifier.
func New(session *review.Session, surface *Surface, host *Host, bus *notify.Bus, keys map[string]config.Keybinding) *Model {
	m := &Model{
		session: session,
		host:    host,
		bus:     bus,
		notices: make(chan notifycore.Notification, 32),
		keys:    keys,
		log:     logging.Component("tui"),
		input:   textarea.New(),
	}
	m.input.Placeholder = "Write a comment…"
	m.input.CharLimit = 0

	surface.onDiff = func(p diffview.Panes) {
		m.panesMu.Lock()
		m.panes = p
		m.panesMu.Unlock()
	}

	bus.Subscribe(func(n notifycore.Notification) {
		select {
		case m.notices <- n:
		default:
		}
	})

	host.SetMapper(ui.PanelFileList, func(line int) int { return line + 1 })
	host.SetMapper(ui.PanelComments, func(line int) int {
		return review.CommentIndexAtLine(session.Comments(), line)
	})
	return m
}

// Init loads the session and starts listening for notices.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.runOp(func(ctx context.Context) error {
		return m.session.Load(ctx)
	}), m.listenNotices())
}

func (m *Model) listenNotices() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-m.notices)
	}
}

// runOp executes one session operation off the Update loop. The busy flag
// serializes operations: a second keypress while one is in flight is
// dropped with a notice instead of racing the first.
func (m *Model) runOp(fn func(ctx context.Context) error) tea.Cmd {
	if m.busy {
		m.bus.Infof("still working on the previous operation")
		return nil
	}
	m.busy = true
	return func() tea.Msg {
		return opDoneMsg{err: fn(context.Background())}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.host.SetSize(msg.Width, msg.Height-1) // reserve the notice line
		m.input.SetWidth(msg.Width - 8)
		m.input.SetHeight(6)
		return m, nil

	case opDoneMsg:
		m.busy = false
		return m, nil

	case noticeMsg:
		m.notice = notifycore.Notification(msg)
		return m, m.listenNotices()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeInput:
		return m.updateInput(msg)
	case modeConfirm:
		return m.updateConfirm(msg)
	case modePicker:
		return m.updatePicker(msg)
	case modeDetail:
		m.mode = modeNormal
		m.detail = ""
		return m, nil
	}
	return m.updateNormal(msg)
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		m.session.Close()
		return m, tea.Quit
	case "j", "down":
		m.pending = ""
		m.moveCursor(1)
		return m, nil
	case "k", "up":
		m.pending = ""
		m.moveCursor(-1)
		return m, nil
	case "tab":
		m.pending = ""
		m.host.CycleFocus()
		return m, nil
	case "enter":
		m.pending = ""
		return m, m.activateCursor()
	case "esc":
		m.pending = ""
		return m, nil
	}

	// Panel-local actions registered through the layout win over global
	// bindings.
	if m.host.HandleKey(key) {
		m.pending = ""
		return m, nil
	}

	return m, m.feedSequence(key)
}

// feedSequence accumulates multi-key bindings. An exact match that is also
// a prefix of a longer binding ("q" vs "qc") waits for the next key;
// pressing the same key again, or any key that breaks the sequence, fires
// the shorter binding.
func (m *Model) feedSequence(key string) tea.Cmd {
	seq := m.pending + key

	if kb, ok := m.keys[seq]; ok && !m.isProperPrefix(seq) {
		m.pending = ""
		return m.dispatch(kb)
	}
	if m.isProperPrefix(seq) {
		m.pending = seq
		return nil
	}

	// The sequence broke; fall back to the exact match buffered so far.
	if kb, ok := m.keys[m.pending]; ok {
		m.pending = ""
		cmd := m.dispatch(kb)
		if key != "" && m.isProperPrefix(key) {
			m.pending = key
		}
		return cmd
	}
	m.pending = ""
	return nil
}

func (m *Model) isProperPrefix(seq string) bool {
	for key := range m.keys {
		if len(key) > len(seq) && strings.HasPrefix(key, seq) {
			return true
		}
	}
	return false
}

// moveCursor shifts the focused panel's cursor and keeps the session's
// comment selection in step when the comment panel is focused.
func (m *Model) moveCursor(delta int) {
	m.host.MoveCursor(delta)
	if m.host.FocusedKind() == ui.PanelComments {
		if idx := m.host.CursorEntity(); idx > 0 {
			_ = m.session.SelectComment(idx)
		}
	}
}

// activateCursor is the context-dependent enter key: open a file from the
// file list, show a comment's rendered body from the comment panel.
func (m *Model) activateCursor() tea.Cmd {
	switch m.host.FocusedKind() {
	case ui.PanelFileList:
		idx := m.host.CursorEntity()
		return m.runOp(func(ctx context.Context) error {
			return m.session.OpenFileDiff(ctx, idx)
		})
	case ui.PanelComments:
		if idx := m.host.CursorEntity(); idx > 0 {
			_ = m.session.SelectComment(idx)
		}
		if c := m.session.CurrentComment(); c != nil {
			m.detail = renderMarkdown(c.Body, m.width-8)
			m.mode = modeDetail
		}
	}
	return nil
}

// dispatch routes a configured keybinding. Bindings with a confirm prompt
// detour through the confirm mode first.
func (m *Model) dispatch(kb config.Keybinding) tea.Cmd {
	if kb.Confirm != "" {
		m.confirmPrompt = kb.Confirm
		m.confirmAction = kb.Action
		m.mode = modeConfirm
		return nil
	}
	return m.runAction(kb.Action)
}

func (m *Model) runAction(action string) tea.Cmd {
	switch action {
	case config.ActionNextFile:
		return m.runOp(m.session.NextFile)
	case config.ActionPrevFile:
		return m.runOp(m.session.PrevFile)
	case config.ActionNextComment:
		m.session.NextComment()
		return nil
	case config.ActionPrevComment:
		m.session.PrevComment()
		return nil
	case config.ActionReload:
		return m.runOp(m.session.Reload)
	case config.ActionReloadFile:
		return m.runOp(m.session.ReloadFile)
	case config.ActionGotoFile:
		return m.runOp(m.session.GotoCommentFile)
	case config.ActionAddComment, config.ActionAddGeneral, config.ActionReply:
		return m.openInput(action)
	case config.ActionEditComment:
		return m.openEdit()
	case config.ActionDelComment:
		return m.runOp(m.session.DeleteComment)
	case config.ActionApprove:
		return m.runOp(func(ctx context.Context) error {
			return m.session.SubmitReview(ctx, gh.EventApprove)
		})
	case config.ActionRequest:
		return m.runOp(func(ctx context.Context) error {
			return m.session.SubmitReview(ctx, gh.EventRequestChanges)
		})
	case config.ActionComment:
		return m.runOp(func(ctx context.Context) error {
			return m.session.SubmitReview(ctx, gh.EventComment)
		})
	case config.ActionReact:
		return m.openPicker(false)
	case config.ActionUnreact:
		return m.openPicker(true)
	case config.ActionCloseList:
		m.session.CloseComments()
		return nil
	case config.ActionCloseSession:
		m.session.Close()
		return tea.Quit
	}
	m.log.Warn().Str("action", action).Msg("unhandled action")
	return nil
}

var inputTitles = map[string]string{
	config.ActionAddComment:  "New comment",
	config.ActionAddGeneral:  "New general comment",
	config.ActionReply:       "Reply",
	config.ActionEditComment: "Edit comment",
}

func (m *Model) openInput(action string) tea.Cmd {
	if action == config.ActionAddComment && m.commentAnchor() == 0 {
		m.bus.Warnf("move the cursor to a changed line first")
		return nil
	}
	m.inputAction = action
	m.inputTitle = inputTitles[action]
	m.input.Reset()
	m.mode = modeInput
	return m.input.Focus()
}

func (m *Model) openEdit() tea.Cmd {
	c := m.session.CurrentComment()
	if c == nil {
		m.bus.Warnf("no comment selected")
		return nil
	}
	m.inputAction = config.ActionEditComment
	m.inputTitle = inputTitles[config.ActionEditComment]
	m.input.SetValue(c.Body)
	m.mode = modeInput
	return m.input.Focus()
}

// commentAnchor returns the file line under the diff cursor, or 0 when the
// cursor is not on a commentable row.
func (m *Model) commentAnchor() int {
	m.panesMu.Lock()
	panes := m.panes
	m.panesMu.Unlock()

	switch m.host.FocusedKind() {
	case ui.PanelDiffNew:
		return panes.NewLineAt(m.host.CursorRow())
	case ui.PanelDiffOld:
		return panes.OldLineAt(m.host.CursorRow())
	}
	return 0
}

func (m *Model) anchorSide() gh.DiffSide {
	if m.host.FocusedKind() == ui.PanelDiffOld {
		return gh.SideLeft
	}
	return gh.SideRight
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case "ctrl+s":
		body := strings.TrimSpace(m.input.Value())
		m.mode = modeNormal
		m.input.Blur()
		if body == "" {
			m.bus.Warnf("empty comment discarded")
			return m, nil
		}
		return m, m.submitInput(body)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitInput(body string) tea.Cmd {
	switch m.inputAction {
	case config.ActionAddComment:
		line := m.commentAnchor()
		side := m.anchorSide()
		file := m.session.CurrentFile()
		if file == nil || line == 0 {
			m.bus.Warnf("no diff line selected")
			return nil
		}
		path := file.Path
		return m.runOp(func(ctx context.Context) error {
			return m.session.AddComment(ctx, path, line, side, body)
		})
	case config.ActionAddGeneral:
		return m.runOp(func(ctx context.Context) error {
			return m.session.AddGeneralComment(ctx, body)
		})
	case config.ActionReply:
		return m.runOp(func(ctx context.Context) error {
			return m.session.Reply(ctx, body)
		})
	case config.ActionEditComment:
		return m.runOp(func(ctx context.Context) error {
			return m.session.EditComment(ctx, body)
		})
	}
	return nil
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		action := m.confirmAction
		m.mode = modeNormal
		m.confirmPrompt = ""
		m.confirmAction = ""
		return m, m.runAction(action)
	default:
		m.mode = modeNormal
		m.confirmPrompt = ""
		m.confirmAction = ""
		return m, nil
	}
}

func (m *Model) openPicker(remove bool) tea.Cmd {
	if m.session.CurrentComment() == nil {
		m.bus.Warnf("no comment selected")
		return nil
	}
	m.pickerKinds = review.ReactionKinds
	m.pickerCursor = 0
	m.pickerRemove = remove
	m.mode = modePicker
	return nil
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		return m, nil
	case "j", "down", "l", "right":
		if m.pickerCursor < len(m.pickerKinds)-1 {
			m.pickerCursor++
		}
		return m, nil
	case "k", "up", "h", "left":
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
		return m, nil
	case "enter":
		kind := m.pickerKinds[m.pickerCursor]
		remove := m.pickerRemove
		m.mode = modeNormal
		return m, m.runOp(func(ctx context.Context) error {
			if remove {
				return m.session.Unreact(ctx, kind)
			}
			return m.session.React(ctx, kind)
		})
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "loading…"
	}

	base := lipgloss.JoinVertical(lipgloss.Left, m.host.View(), m.noticeLine())

	switch m.mode {
	case modeInput:
		return m.overlay(modalStyle.Render(m.inputTitle + "\n\n" + m.input.View() + "\n\n" + helpStyle.Render("ctrl+s send · esc cancel")))
	case modeConfirm:
		return m.overlay(modalStyle.Render(m.confirmPrompt + "\n\n" + helpStyle.Render("y confirm · any other key cancels")))
	case modePicker:
		return m.overlay(modalStyle.Render(m.pickerView()))
	case modeDetail:
		return m.overlay(modalStyle.Render(m.detail + "\n" + helpStyle.Render("any key to close")))
	}
	return base
}

func (m *Model) pickerView() string {
	title := "React"
	if m.pickerRemove {
		title = "Remove reaction"
	}
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for i, kind := range m.pickerKinds {
		marker := "  "
		if i == m.pickerCursor {
			marker = "> "
		}
		b.WriteString(marker + review.ReactionIcon(kind) + " " + kind + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("enter select · esc cancel"))
	return b.String()
}

func (m *Model) overlay(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) noticeLine() string {
	if m.notice.Message == "" {
		return helpStyle.Render("tab focus · j/k move · enter open · q quit")
	}
	switch m.notice.Level {
	case notifycore.LevelError:
		return noticeError.Render(m.notice.Message)
	case notifycore.LevelWarning:
		return noticeWarn.Render(m.notice.Message)
	default:
		return noticeInfo.Render(m.notice.Message)
	}
}
