package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/camuig/pankou/internal/grouping"
)

type styles struct {
	sector    lipgloss.Style
	session   lipgloss.Style
	time      lipgloss.Style
	value     lipgloss.Style
	highlight lipgloss.Style
	dim       lipgloss.Style
}

// newStyles binds to the renderer so colour is dropped when w is not a
// terminal.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		sector:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		session:   r.NewStyle().Foreground(lipgloss.Color("245")),
		time:      r.NewStyle().Foreground(lipgloss.Color("14")),
		value:     r.NewStyle().Foreground(lipgloss.Color("9")),
		highlight: r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
		dim:       r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// renderTable prints one block per sector with a line per time group.
func renderTable(w io.Writer, view *grouping.View) error {
	st := newStyles(lipgloss.NewRenderer(w))

	rows := view.Rows()
	if len(rows) == 0 {
		_, err := io.WriteString(w, st.dim.Render("暂无异动数据")+"\n")
		return err
	}

	width := 0
	for _, row := range rows {
		if n := lipgloss.Width(row.Sector); n > width {
			width = n
		}
	}

	var b strings.Builder
	for _, row := range rows {
		pad := strings.Repeat(" ", width-lipgloss.Width(row.Sector))
		b.WriteString(st.sector.Render(row.Sector) + pad + "\n")
		writeSession(&b, st, "上午", row.Morning)
		writeSession(&b, st, "下午", row.Afternoon)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeSession(b *strings.Builder, st styles, label string, groups []grouping.TimeGroupJSON) {
	if len(groups) == 0 {
		return
	}
	for i, g := range groups {
		prefix := "      "
		if i == 0 {
			prefix = "  " + st.session.Render(label) + "  "
		}
		b.WriteString(prefix + st.time.Render(g.Time))
		for _, e := range g.Stocks {
			cell := e.Name + st.value.Render(e.Value)
			if e.Highlight {
				cell = st.highlight.Render(e.Name + e.Value)
			}
			b.WriteString("  " + cell)
		}
		b.WriteString("\n")
	}
}
