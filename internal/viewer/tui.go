package viewer

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type mode int

const (
	modeBrowse mode = iota
	modeSearch
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	footerStyle = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
)

// Model is the interactive table browser. Keys: arrows scroll, n/p page,
// / filters, e exports the filtered rows to CSV, q quits.
type Model struct {
	viewer *Viewer
	table  table.Model
	search textinput.Model
	mode   mode
	width  int
	height int
	status string
}

// NewModel builds the browser for a loaded viewer.
func NewModel(v *Viewer) Model {
	search := textinput.New()
	search.Placeholder = "filter rows"
	search.CharLimit = 128

	m := Model{
		viewer: v,
		search: search,
		height: 24,
		width:  80,
	}
	m.rebuildTable()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rebuildTable()
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeSearch {
			switch msg.String() {
			case "enter":
				m.viewer.SetFilter(m.search.Value())
				m.mode = modeBrowse
				m.search.Blur()
				m.rebuildTable()
				return m, nil
			case "esc":
				m.mode = modeBrowse
				m.search.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "/":
			m.mode = modeSearch
			m.search.SetValue(m.viewer.Filter())
			m.search.Focus()
			return m, textinput.Blink
		case "n", "right":
			m.viewer.NextPage()
			m.rebuildTable()
			return m, nil
		case "p", "left":
			m.viewer.PrevPage()
			m.rebuildTable()
			return m, nil
		case "e":
			m.status = m.export()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := m.viewer.Title
	if title == "" {
		title = m.viewer.Ref.String()
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if m.mode == modeSearch {
		b.WriteString("filter: " + m.search.View() + "\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")

	footer := fmt.Sprintf("page %d/%d  %d rows",
		m.viewer.Page()+1, m.viewer.PageCount(), m.viewer.MatchCount())
	if f := m.viewer.Filter(); f != "" {
		footer += fmt.Sprintf("  (filtered from %d, query %q)", m.viewer.TotalRows(), f)
	}
	footer += "   n/p page  / filter  e export  q quit"
	b.WriteString(footerStyle.Render(footer))

	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status))
	}
	return b.String()
}

// rebuildTable reloads the bubbles table from the viewer's current page.
func (m *Model) rebuildTable() {
	cols := m.viewer.Columns()
	width := (m.width - 4) / max(len(cols), 1)
	if width < 8 {
		width = 8
	}
	tcols := make([]table.Column, len(cols))
	for i, c := range cols {
		tcols[i] = table.Column{Title: c, Width: width}
	}

	rows := m.viewer.Rows()
	trows := make([]table.Row, len(rows))
	for i, r := range rows {
		trows[i] = table.Row(r)
	}

	height := m.height - 6
	if height < 5 {
		height = 5
	}
	m.table = table.New(
		table.WithColumns(tcols),
		table.WithRows(trows),
		table.WithHeight(height),
		table.WithFocused(true),
	)
}

// export writes the filtered rows next to the working directory and returns
// a status line.
func (m *Model) export() string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, m.viewer.Title)
	if name == "" || name == "_" {
		name = strings.ReplaceAll(m.viewer.Ref.NodeID(), "-", "_")
	}
	path := name + ".csv"

	f, err := os.Create(path)
	if err != nil {
		return "export failed: " + err.Error()
	}
	defer func() { _ = f.Close() }()

	if err := m.viewer.ExportCSV(f); err != nil {
		return "export failed: " + err.Error()
	}
	return fmt.Sprintf("exported %d rows to %s", m.viewer.MatchCount(), path)
}
