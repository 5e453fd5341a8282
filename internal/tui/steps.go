package tui

import (
	"strconv"
	"strings"

	"github.com/Iron-Ham/gentle/internal/tui/styles"
	"github.com/Iron-Ham/gentle/internal/util"
	"github.com/Iron-Ham/gentle/internal/workflow"
)

// stepRow is one selectable line of a step list: a step, or a sub-step
// shown under it.
type stepRow struct {
	id        string
	parentID  string
	content   string
	rationale string
	done      bool
}

func (r stepRow) sub() bool { return r.parentID != "" }

// stepRows flattens steps and their sub-steps into display order.
func stepRows(steps []workflow.StepView) []stepRow {
	rows := make([]stepRow, 0, len(steps))
	for _, s := range steps {
		rows = append(rows, stepRow{id: s.ID, content: s.Content, done: s.Done})
		for _, sub := range s.SubSteps {
			rows = append(rows, stepRow{
				id:        sub.ID,
				parentID:  s.ID,
				content:   sub.Content,
				rationale: sub.Rationale,
				done:      sub.Done,
			})
		}
	}
	return rows
}

// stepListStyle controls how renderSteps highlights rows.
type stepListStyle struct {
	cursor        int
	nextID        string
	justCompleted string
	showRationale bool
	width         int
}

func renderSteps(rows []stepRow, st stepListStyle) string {
	width := st.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	number := 0
	for i, row := range rows {
		prefix := "  "
		if i == st.cursor {
			prefix = styles.Cursor.Render("› ")
		}

		mark := "○ "
		if row.done {
			mark = "✓ "
		}
		label := row.content
		indent := ""
		if row.sub() {
			indent = "    "
		} else {
			number++
			label = strconv.Itoa(number) + ". " + label
		}
		text := util.Truncate(mark+label, width-len(indent)-2)

		style := styles.StepPending
		switch {
		case row.id == st.justCompleted:
			style = styles.StepJustDone
		case row.done:
			style = styles.StepDone
		case row.id == st.nextID:
			style = styles.StepNext
		}
		b.WriteString(prefix + indent + style.Render(text))
		b.WriteString("\n")

		if row.sub() && st.showRationale && row.rationale != "" {
			b.WriteString(styles.Rationale.Render(util.Wrap(row.rationale, width-8)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func clampCursor(cursor, n int) int {
	if n == 0 {
		return 0
	}
	return max(0, min(cursor, n-1))
}
