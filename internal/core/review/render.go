package review

import (
	"fmt"
	"strings"
)

// statusGlyphs for the file list.
var statusGlyphs = map[FileStatus]string{
	FileAdded:    "A",
	FileRemoved:  "D",
	FileModified: "M",
	FileRenamed:  "R",
	FileCopied:   "C",
}

// FormatFileLines renders the changed-file list, one line per file, with
// the current selection marked. currentIdx is 1-based, 0 = none.
func FormatFileLines(files []ChangedFile, currentIdx int) []string {
	lines := make([]string, 0, len(files))
	for i, f := range files {
		marker := "  "
		if i+1 == currentIdx {
			marker = "> "
		}
		lines = append(lines, fmt.Sprintf("%s%s %-40s +%d -%d",
			marker, statusGlyphs[f.Status], f.Path, f.Additions, f.Deletions))
	}
	return lines
}

// FormatCommentLines renders the comment list in its contract order: one
// header line plus indented body preview per comment. The renderer relies
// on the builder's ordering and never re-sorts.
func FormatCommentLines(comments []Comment, currentIdx int) []string {
	var lines []string
	for i, c := range comments {
		marker := "  "
		if i+1 == currentIdx {
			marker = "> "
		}

		lines = append(lines, marker+commentHeader(c))
		for _, bodyLine := range previewLines(c.Body, 3) {
			lines = append(lines, "    "+bodyLine)
		}
		if c.ReactionsSummary != "" {
			lines = append(lines, "    "+c.ReactionsSummary)
		}
	}
	return lines
}

func commentHeader(c Comment) string {
	var b strings.Builder

	if c.IsReply {
		b.WriteString("↳ ")
	}
	b.WriteString(c.Author)

	switch {
	case c.IsGeneral():
		b.WriteString(" (general)")
	default:
		fmt.Fprintf(&b, " %s:%d", c.Path, c.Line)
	}

	if c.IsPending() {
		b.WriteString(" [pending]")
	}
	if c.Outdated {
		b.WriteString(" [outdated]")
	}
	if c.Resolved {
		b.WriteString(" [resolved]")
	}
	return b.String()
}

// previewLines returns at most max lines of body, marking truncation.
func previewLines(body string, max int) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	lines := strings.Split(body, "\n")
	if len(lines) <= max {
		return lines
	}
	out := make([]string, max+1)
	copy(out, lines[:max])
	out[max] = "…"
	return out
}

// CommentIndexAtLine maps a rendered comment-panel line back to the
// 1-based comment index it belongs to, or 0 for padding rows. The mapping
// mirrors FormatCommentLines exactly.
func CommentIndexAtLine(comments []Comment, line int) int {
	row := 0
	for i, c := range comments {
		rows := 1 + len(previewLines(c.Body, 3))
		if c.ReactionsSummary != "" {
			rows++
		}
		if line < row+rows {
			return i + 1
		}
		row += rows
	}
	return 0
}
