// package formatter renders plans and run summaries for CLI output.
package formatter

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spotsync/internal/syncer"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// PlanToText renders a plan as plain text, one line per operation.
// Used for dry runs, where the plan is the entire output.
func PlanToText(plan *syncer.Plan) []byte {
	var buf bytes.Buffer

	if plan.Empty() {
		buf.WriteString("Nothing to do; everything is in sync.\n")
		return buf.Bytes()
	}

	if len(plan.Fetches) > 0 {
		buf.WriteString(fmt.Sprintf("Fetch (%d):\n", len(plan.Fetches)))
		for _, op := range plan.Fetches {
			buf.WriteString(fmt.Sprintf("  + %s - %s\n", op.Track.Artist, op.Track.Title))
		}
	}

	if len(plan.Materializes) > 0 {
		buf.WriteString(fmt.Sprintf("Copy into folders (%d):\n", len(plan.Materializes)))
		for _, op := range plan.Materializes {
			buf.WriteString(fmt.Sprintf("  > %s <- %s\n", op.Dest, op.Filename))
		}
	}

	if len(plan.Removes) > 0 {
		buf.WriteString(fmt.Sprintf("Remove from folders (%d):\n", len(plan.Removes)))
		for _, op := range plan.Removes {
			buf.WriteString(fmt.Sprintf("  - %s/%s\n", op.Dest, op.Filename))
		}
	}

	if len(plan.Prunes) > 0 {
		buf.WriteString(fmt.Sprintf("Prune from cache (%d):\n", len(plan.Prunes)))
		for _, op := range plan.Prunes {
			buf.WriteString(fmt.Sprintf("  x %s\n", op.Filename))
		}
	}

	buf.WriteString(fmt.Sprintf("\n%d operations planned across %d playlists.\n", plan.Ops(), len(plan.Playlists)))
	return buf.Bytes()
}

// ResultToText renders a run summary as plain text.
func ResultToText(res *syncer.Result) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Fetched: %d  Copied: %d  Removed: %d  Pruned: %d\n",
		res.Fetched, res.Materialized, res.Removed, res.Pruned))

	if res.Failed > 0 {
		buf.WriteString(fmt.Sprintf("Failed: %d\n", res.Failed))
		for _, f := range res.Failures {
			if f.Dest != "" {
				buf.WriteString(fmt.Sprintf("  %s %s (%s): %v\n", f.Phase, f.Identity, f.Dest, f.Err))
			} else {
				buf.WriteString(fmt.Sprintf("  %s %s: %v\n", f.Phase, f.Identity, f.Err))
			}
		}
	}

	return buf.Bytes()
}

// Summary renders a styled one-line verdict for the end of a run.
func Summary(res *syncer.Result) string {
	line := fmt.Sprintf("fetched %s, copied %s, removed %s, pruned %s",
		countStyle.Render(fmt.Sprint(res.Fetched)),
		countStyle.Render(fmt.Sprint(res.Materialized)),
		countStyle.Render(fmt.Sprint(res.Removed)),
		countStyle.Render(fmt.Sprint(res.Pruned)),
	)
	if res.Failed > 0 {
		return fmt.Sprintf("%s %s (%s)",
			failureStyle.Render("Sync finished with failures:"),
			line,
			failureStyle.Render(fmt.Sprintf("%d failed", res.Failed)),
		)
	}
	return fmt.Sprintf("%s %s", successStyle.Render("Sync complete:"), line)
}

// Heading renders a bold section heading.
func Heading(text string) string {
	return headerStyle.Render(text)
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
