package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/boardsync/pkg/loader"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// SheetListModel - Interactive sheet selection
// =============================================================================

// SheetInfo summarizes one workbook sheet.
type SheetInfo struct {
	Name    string
	Rows    int
	Columns []string
	Err     error // the sheet could not be parsed
}

// sheetInfos parses every sheet of l for the picker.
func sheetInfos(l *loader.Loader) []SheetInfo {
	names := l.ListSheets()
	infos := make([]SheetInfo, 0, len(names))
	for _, name := range names {
		info := SheetInfo{Name: name}
		rows, err := l.Rows(name)
		if err == nil {
			info.Rows = len(rows)
			info.Columns, err = l.Headers(name)
		}
		info.Err = err
		infos = append(infos, info)
	}
	return infos
}

// SheetListModel is the bubbletea model for interactive sheet selection.
type SheetListModel struct {
	Sheets   []SheetInfo
	Cursor   int
	Selected *SheetInfo
	Height   int
	Offset   int
}

// NewSheetListModel creates a new sheet list model.
func NewSheetListModel(sheets []SheetInfo) SheetListModel {
	return SheetListModel{Sheets: sheets, Height: 15}
}

func (m SheetListModel) Init() tea.Cmd {
	return nil
}

func (m SheetListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Sheets)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Sheets) == 0 {
				return m, tea.Quit
			}
			sheet := m.Sheets[m.Cursor]
			if sheet.Err != nil || sheet.Rows == 0 {
				return m, nil
			}
			m.Selected = &sheet
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m SheetListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Sheet"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Sheets))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		s := m.Sheets[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		count, cols := strconv.Itoa(s.Rows), formatColumns(s.Columns, 4)
		if s.Err != nil {
			count, cols = "—", "unreadable"
		}
		rows = append(rows, []string{cursor, s.Name, count, cols})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Sheet", "Rows", "Columns").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Sheets) {
				return lipgloss.NewStyle()
			}
			s := m.Sheets[idx]
			usable := s.Err == nil && s.Rows > 0

			base := lipgloss.NewStyle()
			switch {
			case idx == m.Cursor && usable:
				return base.Foreground(colorGreen).Bold(true)
			case idx == m.Cursor:
				return base.Foreground(colorDim).Bold(true)
			case usable:
				return base.Foreground(colorWhite)
			}
			return base.Foreground(colorDim)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Sheets))))

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// formatColumns joins up to n column names and counts the rest.
func formatColumns(cols []string, n int) string {
	if len(cols) == 0 {
		return "—"
	}
	if len(cols) <= n {
		return strings.Join(cols, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(cols[:n], ", "), len(cols)-n)
}
