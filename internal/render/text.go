package render

import (
	"io"
	"strings"
	"text/tabwriter"

	apperrors "storepivot/internal/errors"
)

// WriteText writes t as an aligned plain-text table, indenting the first
// column two spaces per level.
func WriteText(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	line := func(cells []string) {
		io.WriteString(tw, strings.Join(cells, "\t")+"\n")
	}

	line(t.Header)
	for _, r := range t.Rows {
		cells := append([]string(nil), r.Cells...)
		if len(cells) > 0 {
			cells[0] = strings.Repeat("  ", r.Level) + cells[0]
		}
		line(cells)
	}
	if len(t.Footer) > 0 {
		line(t.Footer)
	}

	if err := tw.Flush(); err != nil {
		return apperrors.NewStorageError("failed to write table", err)
	}
	return nil
}
