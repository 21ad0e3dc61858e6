// Package diffview turns unified diff text into aligned side-by-side
// panes for the old and new versions of a file.
package diffview

import (
	"errors"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ErrEmptyDiff is returned when the diff text contains no file changes.
var ErrEmptyDiff = errors.New("empty diff")

// Panes holds the two rendered columns. Rows at the same index are aligned:
// a deletion pairs with the addition that replaced it, or with a filler row.
// OldNums/NewNums carry the 1-based file line number per row; 0 marks
// filler rows and hunk headers.
type Panes struct {
	Old     []string
	New     []string
	OldNums []int
	NewNums []int
}

// Rows returns the number of aligned rows.
func (p Panes) Rows() int { return len(p.Old) }

// NewLineAt returns the new-side file line for a pane row, or 0 when the
// row has no new-side line (filler, header, pure deletion). Used to anchor
// a comment to the line under the cursor.
func (p Panes) NewLineAt(row int) int {
	if row < 0 || row >= len(p.NewNums) {
		return 0
	}
	return p.NewNums[row]
}

// OldLineAt returns the old-side file line for a pane row, or 0.
func (p Panes) OldLineAt(row int) int {
	if row < 0 || row >= len(p.OldNums) {
		return 0
	}
	return p.OldNums[row]
}

type numbered struct {
	text string
	num  int
}

// Build parses unified diff text and renders the first file's hunks.
func Build(diffText string) (Panes, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(diffText))
	if err != nil {
		return Panes{}, err
	}
	if len(files) == 0 {
		return Panes{}, ErrEmptyDiff
	}

	var p Panes
	appendRow := func(old string, oldNum int, new string, newNum int) {
		p.Old = append(p.Old, old)
		p.OldNums = append(p.OldNums, oldNum)
		p.New = append(p.New, new)
		p.NewNums = append(p.NewNums, newNum)
	}

	for _, frag := range files[0].TextFragments {
		appendRow(frag.Header(), 0, frag.Header(), 0)

		oldNo := int(frag.OldPosition)
		newNo := int(frag.NewPosition)

		var dels, adds []numbered
		flush := func() {
			n := len(dels)
			if len(adds) > n {
				n = len(adds)
			}
			for i := 0; i < n; i++ {
				old, oldNum := "", 0
				if i < len(dels) {
					old, oldNum = "-"+dels[i].text, dels[i].num
				}
				new, newNum := "", 0
				if i < len(adds) {
					new, newNum = "+"+adds[i].text, adds[i].num
				}
				appendRow(old, oldNum, new, newNum)
			}
			dels, adds = nil, nil
		}

		for _, line := range frag.Lines {
			text := strings.TrimSuffix(line.Line, "\n")
			switch line.Op {
			case gitdiff.OpContext:
				flush()
				appendRow(" "+text, oldNo, " "+text, newNo)
				oldNo++
				newNo++
			case gitdiff.OpDelete:
				dels = append(dels, numbered{text: text, num: oldNo})
				oldNo++
			case gitdiff.OpAdd:
				adds = append(adds, numbered{text: text, num: newNo})
				newNo++
			}
		}
		flush()
	}

	return p, nil
}

// FromContents renders two full file versions as plain panes with line
// numbers, used when no diff text is available (binary fallback or an
// unchanged file).
func FromContents(oldContent, newContent string) Panes {
	oldLines := splitContent(oldContent)
	newLines := splitContent(newContent)

	n := len(oldLines)
	if len(newLines) > n {
		n = len(newLines)
	}

	var p Panes
	for i := 0; i < n; i++ {
		old, oldNum := "", 0
		if i < len(oldLines) {
			old, oldNum = " "+oldLines[i], i+1
		}
		new, newNum := "", 0
		if i < len(newLines) {
			new, newNum = " "+newLines[i], i+1
		}
		p.Old = append(p.Old, old)
		p.OldNums = append(p.OldNums, oldNum)
		p.New = append(p.New, new)
		p.NewNums = append(p.NewNums, newNum)
	}
	return p
}

func splitContent(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}
