package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"kidplan/internal/model"
)

const (
	timeColWidth = 6
	dayColWidth  = 13
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dayStyle     = lipgloss.NewStyle().Bold(true).Width(dayColWidth)
	timeStyle    = lipgloss.NewStyle().Faint(true).Width(timeColWidth)
	cellStyle    = lipgloss.NewStyle().Width(dayColWidth)
	eventStyle   = cellStyle.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63"))
	bgStyle      = cellStyle.Foreground(lipgloss.Color("245")).Background(lipgloss.Color("236"))
	selectStyle  = cellStyle.Background(lipgloss.Color("28"))
	cursorStyle  = cellStyle.Reverse(true)
	statusStyle  = lipgloss.NewStyle().Faint(true)
	dialogStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	noticeBorder = dialogStyle.BorderForeground(lipgloss.Color("212"))
)

const helpLine = "←↓↑→ cursor · space anchor · enter select · m move · +/- resize · n/p week · t today · x export · q quit"

func (m *Model) View() string {
	switch m.mode {
	case modePrompt:
		label := ""
		if m.prompt != nil {
			label = m.prompt.label
		}
		return dialogStyle.Render(label + "\n\n" + m.input.View() + "\n\nenter ok · esc cancel")
	case modeNotice:
		if len(m.notices) > 0 {
			return noticeBorder.Render(m.notices[0] + "\n\npress any key")
		}
	}
	return m.gridView()
}

func (m *Model) gridView() string {
	days := m.days()
	loc := m.cal.Options().Location

	var b strings.Builder
	b.WriteString(headerStyle.Render(days[0].Format("2006-01-02") + " – " + days[6].Format("2006-01-02") + " (" + loc.String() + ")"))
	b.WriteString("\n")

	cols := make([]string, 0, 8)
	cols = append(cols, timeStyle.Render(""))
	for _, d := range days {
		cols = append(cols, dayStyle.Render(d.Format("Mon 01/02")))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")

	step := m.cal.SlotDuration()
	var events [7][]model.PlanEvent
	var background [7][]model.Occurrence
	for i, d := range days {
		next := d.AddDate(0, 0, 1)
		events[i] = m.cal.EventsBetween(d, next)
		background[i] = m.cal.BackgroundBetween(d, next)
	}

	n := m.slotCount()
	end := m.offset + m.visibleRows()
	if end > n {
		end = n
	}
	for s := m.offset; s < end; s++ {
		row := make([]string, 0, 8)
		label := ""
		if t := m.slotTime(point{0, s}); t.Minute() == 0 {
			label = t.Format("15:04")
		}
		row = append(row, timeStyle.Render(label))
		for d := range days {
			row = append(row, m.cell(point{d, s}, step, events[d], background[d]))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
		b.WriteString("\n")
	}

	if m.moving != nil {
		start, _ := m.moveTarget()
		b.WriteString(statusStyle.Render("moving " + m.moving.ev.Title + " to " + start.In(loc).Format("Mon 15:04")))
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(helpLine))
	return b.String()
}

// cell renders one slot: cursor beats selection beats plan events beats
// background occurrences.
func (m *Model) cell(p point, step time.Duration, events []model.PlanEvent, bg []model.Occurrence) string {
	start := m.slotTime(p)
	end := start.Add(step)

	text := ""
	style := cellStyle
	for _, occ := range bg {
		if occ.Start.Before(end) && occ.End.After(start) {
			style = bgStyle
			if !occ.Start.Before(start) || occ.AllDay && p.slot == 0 {
				text = occ.Summary
			}
			break
		}
	}
	for _, ev := range events {
		if covers(ev, start, end) {
			style = eventStyle
			text = "│"
			if !ev.Start.Before(start) {
				text = ev.Title
			}
			break
		}
	}
	if m.inSelection(p) {
		style = selectStyle
	}
	if p == m.cursor {
		style = cursorStyle
	}
	return style.Render(truncate(text, dayColWidth-1))
}

func (m *Model) inSelection(p point) bool {
	if m.anchor == nil {
		return false
	}
	a, c := *m.anchor, m.cursor
	key := func(q point) int { return q.day*10000 + q.slot }
	lo, hi := key(a), key(c)
	if lo > hi {
		lo, hi = hi, lo
	}
	k := key(p)
	return k >= lo && k <= hi
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
