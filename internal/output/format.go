// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ytbatch/internal/batch"
	"ytbatch/internal/journal"
	"ytbatch/internal/processor"
	"ytbatch/internal/service"
)

// HistoryTimeFormat is the timestamp layout of history lines.
const HistoryTimeFormat = "2006-01-02 15:04:05"

// styles renders for w: colors only when w is a terminal.
type styles struct {
	header lipgloss.Style
	key    lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header: r.NewStyle().Bold(true),
		key:    r.NewStyle().Foreground(lipgloss.Color("6")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// FormatSummary prints the result of a run.
// Format: "created N, updated N, deleted N" followed by the pending count
// when something is left.
func FormatSummary(w io.Writer, sum processor.Summary, pending int) {
	fmt.Fprintf(w, "created %d, updated %d, deleted %d\n", sum.Created, sum.Updated, sum.Deleted)
	if pending > 0 {
		st := newStyles(w)
		fmt.Fprintln(w, st.muted.Render(fmt.Sprintf("%d pending", pending)))
	}
}

// FormatApplied prints one applied mutation.
func FormatApplied(w io.Writer, a processor.Applied) {
	st := newStyles(w)
	switch a.Kind {
	case processor.KindCreated:
		line := fmt.Sprintf("%-8s %s  %s", a.Kind, st.key.Render(a.IssueKey), normalizeTitle(a.Summary))
		if a.Parent != "" {
			line += st.muted.Render(" (in " + a.Parent + ")")
		}
		fmt.Fprintln(w, line)
	default:
		fmt.Fprintf(w, "%-8s %s\n", a.Kind, st.key.Render(a.IssueKey))
	}
}

// FormatPending prints the pending mutations of b as sections. Subtasks are
// indented under their parent.
func FormatPending(w io.Writer, b *batch.TaskBatch) {
	st := newStyles(w)

	if b.IsEmpty() {
		fmt.Fprintln(w, "nothing pending")
		return
	}

	if n := b.Created.Len(); n > 0 {
		fmt.Fprintln(w, st.header.Render(fmt.Sprintf("created (%d)", n)))
		for _, spec := range b.Created.Items() {
			formatCreated(w, st, spec, 1)
		}
	}
	if n := b.Updated.Len(); n > 0 {
		fmt.Fprintln(w, st.header.Render(fmt.Sprintf("updated (%d)", n)))
		for _, upd := range b.Updated.Items() {
			fmt.Fprintf(w, "  %s: %s\n", st.key.Render(upd.IssueID), strings.Join(patchFields(upd.IssuePatch), ", "))
		}
	}
	if n := b.Deleted.Len(); n > 0 {
		fmt.Fprintln(w, st.header.Render(fmt.Sprintf("deleted (%d)", n)))
		for _, id := range b.Deleted.Items() {
			fmt.Fprintf(w, "  %s\n", st.key.Render(id))
		}
	}
}

func formatCreated(w io.Writer, st styles, spec batch.CreatedTaskSpec, depth int) {
	indent := strings.Repeat("  ", depth)
	line := indent + normalizeTitle(spec.Summary)
	if spec.Queue != "" && depth == 1 {
		line = indent + st.key.Render(spec.Queue) + "  " + normalizeTitle(spec.Summary)
	}
	if spec.Parent != "" {
		line += st.muted.Render(" (in " + spec.Parent + ")")
	}
	fmt.Fprintln(w, line)
	for _, sub := range spec.Subtasks {
		formatCreated(w, st, sub, depth+1)
	}
}

// patchFields lists the names of the fields set in p.
func patchFields(p service.IssuePatch) []string {
	var fields []string
	add := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	add("summary", strings.TrimSpace(p.Summary) != "")
	add("parent", strings.TrimSpace(p.Parent) != "")
	add("description", strings.TrimSpace(p.Description) != "")
	add("sprint", strings.TrimSpace(p.Sprint) != "")
	add("type", strings.TrimSpace(p.Type) != "")
	add("priority", strings.TrimSpace(p.Priority) != "")
	add("followers", len(p.Followers) > 0)
	add("attachmentIds", len(p.AttachmentIDs) > 0)
	add("descriptionAttachmentIds", len(p.DescriptionAttachmentIDs) > 0)
	return fields
}

// FormatHistory prints journal entries, one per line.
// Format: "{TIME}  {KIND:<8} {KEY}  {SUMMARY}"
func FormatHistory(w io.Writer, entries []journal.Entry) {
	st := newStyles(w)
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-8s %s", e.AppliedAt.Local().Format(HistoryTimeFormat), e.Kind, st.key.Render(e.IssueKey))
		if e.Summary != "" {
			line += "  " + normalizeTitle(e.Summary)
		}
		fmt.Fprintln(w, line)
	}
}

// normalizeTitle normalizes a summary for display.
// - Empty or whitespace-only summaries become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
