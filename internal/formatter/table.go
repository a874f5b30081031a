package formatter

import (
	"fmt"
	"strings"

	"github.com/harunnryd/thinx/internal/store"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

const contentWidth = 60

// TableFormatter draws history as a bordered table with the assistant's
// turns highlighted.
type TableFormatter struct {
	headerStyle    lipgloss.Style
	rowStyle       lipgloss.Style
	assistantStyle lipgloss.Style
	borderStyle    lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	accent := lipgloss.Color("99")

	return &TableFormatter{
		headerStyle:    lipgloss.NewStyle().Foreground(accent).Bold(true).Padding(0, 1),
		rowStyle:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1),
		assistantStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Padding(0, 1),
		borderStyle:    lipgloss.NewStyle().Foreground(accent),
	}
}

// newTable styles data rows with pick, which receives the zero-based row.
func (f *TableFormatter) newTable(pick func(row int) lipgloss.Style, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return f.headerStyle
			}
			return pick(row)
		}).
		Headers(headers...)
}

func (f *TableFormatter) FormatEntries(entries []store.Entry) (string, error) {
	if len(entries) == 0 {
		return "No history found", nil
	}

	t := f.newTable(func(row int) lipgloss.Style {
		if row < len(entries) && entries[row].Role == store.RoleAssistant {
			return f.assistantStyle
		}
		return f.rowStyle
	}, "Time", "Role", "Content")
	for _, e := range entries {
		t.Row(e.Timestamp, string(e.Role), truncateString(oneLine(e.Content), contentWidth))
	}
	return t.String(), nil
}

func (f *TableFormatter) FormatIdentities(metas []store.IdentityMeta) (string, error) {
	if len(metas) == 0 {
		return "No identities found", nil
	}

	t := f.newTable(func(int) lipgloss.Style { return f.rowStyle }, "Identity", "Entries", "Updated")
	for _, m := range metas {
		t.Row(m.Identity, fmt.Sprintf("%d", m.Entries), m.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return t.String(), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateString cuts by rune so multi-byte text is never split.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
