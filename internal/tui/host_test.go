package tui

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/perch/internal/ui"
)

func openAll(t *testing.T, h *Host) (files, old, new, comments ui.PanelHandle) {
	t.Helper()
	var err error
	files, err = h.CreatePanel(ui.PanelFileList, ui.RegionLeft)
	require.NoError(t, err)
	old, err = h.CreatePanel(ui.PanelDiffOld, ui.RegionCenterLeft)
	require.NoError(t, err)
	new, err = h.CreatePanel(ui.PanelDiffNew, ui.RegionCenterRight)
	require.NoError(t, err)
	comments, err = h.CreatePanel(ui.PanelComments, ui.RegionBottom)
	require.NoError(t, err)
	return files, old, new, comments
}

func TestHost_CursorClampsToContent(t *testing.T) {
	h := NewHost()
	files, _, _, _ := openAll(t, h)

	h.SetPanelContent(files, []string{"a.go", "b.go", "c.go"})
	h.MoveCursor(10)
	assert.Equal(t, 2, h.CursorRow())

	h.MoveCursor(-10)
	assert.Equal(t, 0, h.CursorRow())

	// Shrinking content pulls the cursor back in range.
	h.MoveCursor(2)
	h.SetPanelContent(files, []string{"a.go"})
	assert.Equal(t, 0, h.CursorRow())
}

func TestHost_FocusCyclesInLayoutOrder(t *testing.T) {
	h := NewHost()
	files, old, new, comments := openAll(t, h)

	assert.Equal(t, files, h.Focused(), "first created panel gets focus")

	h.CycleFocus()
	assert.Equal(t, old, h.Focused())
	h.CycleFocus()
	assert.Equal(t, new, h.Focused())
	h.CycleFocus()
	assert.Equal(t, comments, h.Focused())
	h.CycleFocus()
	assert.Equal(t, files, h.Focused(), "wraps around")
}

func TestHost_ClosingFocusedPanelMovesFocus(t *testing.T) {
	h := NewHost()
	files, _, _, comments := openAll(t, h)

	h.FocusKind(ui.PanelComments)
	require.Equal(t, comments, h.Focused())

	h.ClosePanel(comments)
	assert.Equal(t, files, h.Focused())
	assert.False(t, h.PanelExists(comments))
}

func TestHost_MapCursorToEntityUsesKindMapper(t *testing.T) {
	h := NewHost()
	files, _, _, _ := openAll(t, h)

	assert.Equal(t, 0, h.MapCursorToEntity(files, 2), "no mapper registered")

	h.SetMapper(ui.PanelFileList, func(line int) int { return line + 1 })
	assert.Equal(t, 3, h.MapCursorToEntity(files, 2))

	// The mapper is per kind, so it applies to a recreated panel too.
	h.ClosePanel(files)
	again, err := h.CreatePanel(ui.PanelFileList, ui.RegionLeft)
	require.NoError(t, err)
	assert.Equal(t, 1, h.MapCursorToEntity(again, 0))
}

// Session operations push panel content from their own goroutines while the
// event loop renders and moves cursors; the host must tolerate both at once
// (run with -race).
func TestHost_ConcurrentContentAndRender(t *testing.T) {
	h := NewHost()
	h.SetSize(80, 24)
	files, _, _, comments := openAll(t, h)
	h.SetMapper(ui.PanelFileList, func(line int) int { return line + 1 })

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			h.SetPanelContent(files, []string{"a.go", "b.go", fmt.Sprintf("c%d.go", i)})
			h.SetPanelContent(comments, []string{"one", "two"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = h.View()
			h.MoveCursor(1)
			_ = h.CursorEntity()
			h.CycleFocus()
		}
	}()
	wg.Wait()

	assert.True(t, h.PanelExists(files))
	assert.NotEmpty(t, h.View())
}

func TestHost_HandleKeyDispatchesToFocusedPanel(t *testing.T) {
	h := NewHost()
	files, _, _, comments := openAll(t, h)

	var hit string
	require.NoError(t, h.RegisterAction(files, "o", func() { hit = "files" }))
	require.NoError(t, h.RegisterAction(comments, "o", func() { hit = "comments" }))

	h.FocusKind(ui.PanelFileList)
	assert.True(t, h.HandleKey("o"))
	assert.Equal(t, "files", hit)

	h.FocusKind(ui.PanelComments)
	assert.True(t, h.HandleKey("o"))
	assert.Equal(t, "comments", hit)

	assert.False(t, h.HandleKey("x"), "unbound key is not consumed")
}
