// Package tui is the terminal front-end of the planner: a week grid the
// user selects time ranges on, with a modal title prompt and a modal
// notice.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"kidplan/internal/calendar"
	appLog "kidplan/internal/log"
	"kidplan/internal/model"
)

type mode int

const (
	modeGrid mode = iota
	modePrompt
	modeNotice
)

type titleReply struct {
	title string
	ok    bool
}

// promptMsg opens the title prompt; the answer goes to reply.
type promptMsg struct {
	label string
	reply chan<- titleReply
}

// noticeMsg queues a blocking notice.
type noticeMsg struct{ text string }

// changedMsg asks for a redraw after the calendar changed off-loop.
type changedMsg struct{}

// selectDoneMsg reports that a selection was handed to the calendar.
type selectDoneMsg struct{ err error }

// statusMsg sets the one-line status under the grid.
type statusMsg string

type point struct{ day, slot int }

// moveState is a plan event picked up with "m", grabbed at grab.
type moveState struct {
	ev   model.PlanEvent
	grab time.Time
}

// Updater pushes a changed duration to the backend.
type Updater interface {
	Update(ctx context.Context, childID string, req model.UpdateRequest) (model.ImportResponse, error)
}

// Model is the bubbletea model of the planner.
type Model struct {
	ctx     context.Context
	cal     *calendar.Calendar
	updater Updater

	exportDir string
	now       func() time.Time

	week   time.Time
	cursor point
	anchor *point
	moving *moveState
	offset int
	height int
	width  int

	mode    mode
	prompt  *promptMsg
	queued  []promptMsg
	input   textinput.Model
	notices []string
	status  string
}

// NewModel builds a grid over cal showing the week of now. Exports are
// written under exportDir.
func NewModel(ctx context.Context, cal *calendar.Calendar, exportDir string) *Model {
	m := &Model{
		ctx:       ctx,
		cal:       cal,
		exportDir: exportDir,
		now:       time.Now,
		input:     newTitleInput(),
		height:    24,
		width:     100,
	}
	m.week = cal.WeekStartOf(m.now())
	m.cursor = m.pointAt(m.now())
	return m
}

// SetUpdater makes resized events sync their new duration through u.
func (m *Model) SetUpdater(u Updater) {
	m.updater = u
}

func newTitleInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 120
	return ti
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.scroll()
		return m, nil

	case promptMsg:
		if m.prompt != nil {
			m.queued = append(m.queued, msg)
			return m, nil
		}
		return m, m.openPrompt(msg)

	case noticeMsg:
		m.notices = append(m.notices, msg.text)
		if m.mode == modeGrid {
			m.mode = modeNotice
		}
		return m, nil

	case changedMsg:
		return m, nil

	case selectDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modePrompt:
			return m.updatePrompt(msg)
		case modeNotice:
			return m.updateNotice(msg)
		default:
			return m.updateGrid(msg)
		}
	}

	// cursor blink and other input internals
	if m.mode == modePrompt {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	slots := m.slotCount()
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "left", "h":
		if m.cursor.day > 0 {
			m.cursor.day--
		}
	case "right", "l":
		if m.cursor.day < 6 {
			m.cursor.day++
		}
	case "up", "k":
		if m.cursor.slot > 0 {
			m.cursor.slot--
		}
	case "down", "j":
		if m.cursor.slot < slots-1 {
			m.cursor.slot++
		}
	case "n":
		m.week = m.week.AddDate(0, 0, 7)
		m.anchor = nil
	case "p":
		m.week = m.week.AddDate(0, 0, -7)
		m.anchor = nil
	case "t":
		m.week = m.cal.WeekStartOf(m.now())
		m.cursor = m.pointAt(m.now())
		m.anchor = nil
	case " ":
		if m.moving != nil {
			break
		}
		if m.anchor == nil {
			a := m.cursor
			m.anchor = &a
		} else {
			m.anchor = nil
		}
	case "esc":
		m.anchor = nil
		if m.moving != nil {
			m.moving = nil
			m.status = "move cancelled"
		}
	case "enter":
		if m.moving != nil {
			return m, m.drop()
		}
		sel := m.selection()
		m.anchor = nil
		return m, m.selectCmd(sel)
	case "m":
		m.pickUp()
	case "+", "=":
		return m, m.resize(1)
	case "-":
		return m, m.resize(-1)
	case "x":
		return m, m.exportCmd()
	}
	m.scroll()
	return m, nil
}

func (m *Model) openPrompt(p promptMsg) tea.Cmd {
	m.prompt = &p
	m.input.Reset()
	m.mode = modePrompt
	return m.input.Focus()
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m, m.answer(titleReply{title: m.input.Value(), ok: true})
	case tea.KeyEsc:
		return m, m.answer(titleReply{})
	case tea.KeyCtrlC:
		for m.prompt != nil {
			m.answer(titleReply{})
		}
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// answer replies to the open prompt and opens the next queued one, if any.
func (m *Model) answer(r titleReply) tea.Cmd {
	if m.prompt != nil {
		m.prompt.reply <- r
	}
	m.prompt = nil
	m.input.Reset()
	m.input.Blur()

	if len(m.queued) > 0 {
		next := m.queued[0]
		m.queued = m.queued[1:]
		return m.openPrompt(next)
	}
	m.mode = modeGrid
	if len(m.notices) > 0 {
		m.mode = modeNotice
	}
	return nil
}

func (m *Model) updateNotice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if len(m.notices) > 0 {
		m.notices = m.notices[1:]
	}
	if len(m.notices) == 0 {
		m.mode = modeGrid
	}
	return m, nil
}

// pickUp starts moving the plan event under the cursor.
func (m *Model) pickUp() {
	ev, ok := m.eventAt(m.cursor)
	if !ok {
		m.status = "no plan event here"
		return
	}
	if !m.cal.Options().Editable {
		m.status = calendar.ErrNotEditable.Error()
		return
	}
	m.anchor = nil
	m.moving = &moveState{ev: ev, grab: m.slotTime(m.cursor)}
	m.status = "moving " + ev.Title + ": arrows to move, enter to drop, esc to cancel"
}

// moveTarget is where the picked-up event lands if dropped now.
func (m *Model) moveTarget() (time.Time, time.Time) {
	shift := m.slotTime(m.cursor).Sub(m.moving.grab)
	return m.moving.ev.Start.Add(shift), m.moving.ev.End.Add(shift)
}

func (m *Model) drop() tea.Cmd {
	ev := m.moving.ev
	start, end := m.moveTarget()
	m.moving = nil

	cal, loc := m.cal, m.cal.Options().Location
	return func() tea.Msg {
		if err := cal.MoveEvent(ev.ID, start, end); err != nil {
			appLog.Error("tui: move failed", err, "id", ev.ID)
			return statusMsg("move failed: " + err.Error())
		}
		return statusMsg(fmt.Sprintf("moved %s to %s", ev.Title, start.In(loc).Format("Mon 15:04")))
	}
}

// resize grows or shrinks the event under the cursor by steps slots and
// syncs the new duration when an Updater is set.
func (m *Model) resize(steps int) tea.Cmd {
	ev, ok := m.eventAt(m.cursor)
	if !ok {
		m.status = "no plan event here"
		return nil
	}
	step := m.cal.SlotDuration()
	end := ev.End.Add(time.Duration(steps) * step)
	if end.Sub(ev.Start) < step {
		m.status = "event is already one slot long"
		return nil
	}

	ctx, cal, up := m.ctx, m.cal, m.updater
	return func() tea.Msg {
		if err := cal.MoveEvent(ev.ID, ev.Start, end); err != nil {
			appLog.Error("tui: resize failed", err, "id", ev.ID)
			return statusMsg("resize failed: " + err.Error())
		}
		if up == nil {
			return statusMsg(fmt.Sprintf("%s now ends %s", ev.Title, end.Format("15:04")))
		}
		req := model.UpdateRequest{
			OldTitle:    ev.Title,
			NewTitle:    ev.Title,
			NewDuration: model.DurationMinutes(model.Selection{Start: ev.Start, End: end}),
		}
		resp, err := up.Update(ctx, model.ChildID, req)
		if err != nil {
			appLog.Error("tui: duration sync failed", err, "title", ev.Title)
			return statusMsg("update failed: " + err.Error())
		}
		return statusMsg(resp.Message)
	}
}

// eventAt returns the plan event drawn in cell p.
func (m *Model) eventAt(p point) (model.PlanEvent, bool) {
	day := m.days()[p.day]
	start := m.slotTime(p)
	end := start.Add(m.cal.SlotDuration())
	for _, ev := range m.cal.EventsBetween(day, day.AddDate(0, 0, 1)) {
		if covers(ev, start, end) {
			return ev, true
		}
	}
	return model.PlanEvent{}, false
}

func covers(ev model.PlanEvent, start, end time.Time) bool {
	return ev.Start.Before(end) && (ev.End.After(start) || ev.Start.Equal(start))
}

// selection spans from the earlier to the end of the later of anchor and
// cursor. Without an anchor it covers the cursor slot.
func (m *Model) selection() model.Selection {
	a, b := m.cursor, m.cursor
	if m.anchor != nil {
		a = *m.anchor
	}
	start, end := m.slotTime(a), m.slotTime(b)
	if end.Before(start) {
		start, end = end, start
	}
	return model.Selection{Start: start, End: end.Add(m.cal.SlotDuration())}
}

// selectCmd hands sel to the calendar off the event loop: the select
// callback blocks on the title prompt, which this loop must keep serving.
func (m *Model) selectCmd(sel model.Selection) tea.Cmd {
	ctx, cal := m.ctx, m.cal
	return func() tea.Msg {
		return selectDoneMsg{err: cal.Select(ctx, sel)}
	}
}

func (m *Model) exportCmd() tea.Cmd {
	dir, cal := m.exportDir, m.cal
	stamp := m.now().Format("20060102-150405")
	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return statusMsg("export failed: " + err.Error())
		}
		path := filepath.Join(dir, "plan-"+stamp+".ics")
		f, err := os.Create(path)
		if err != nil {
			return statusMsg("export failed: " + err.Error())
		}
		defer f.Close()
		if err := cal.ExportICS(f); err != nil {
			appLog.Error("tui: export failed", err, "path", path)
			return statusMsg("export failed: " + err.Error())
		}
		return statusMsg(fmt.Sprintf("exported %d events to %s", len(cal.Events()), path))
	}
}

func (m *Model) days() []time.Time {
	return m.cal.WeekDays(m.week)
}

func (m *Model) slotCount() int {
	return len(m.cal.Slots(m.week))
}

func (m *Model) slotTime(p point) time.Time {
	return m.cal.Slots(m.days()[p.day])[p.slot]
}

// pointAt maps t to the grid cell of the current week, clamped to the
// visible hours.
func (m *Model) pointAt(t time.Time) point {
	opts := m.cal.Options()
	t = t.In(opts.Location)
	day := int(t.Sub(m.week).Hours() / 24)
	if day < 0 || day > 6 {
		day = 0
	}
	mins := t.Hour()*60 + t.Minute() - opts.DayStartHour*60
	slot := mins / opts.SlotMinutes
	if n := m.slotCount(); slot >= n {
		slot = n - 1
	}
	if slot < 0 {
		slot = 0
	}
	return point{day: day, slot: slot}
}

// scroll keeps the cursor row within the rows that fit on screen.
func (m *Model) scroll() {
	rows := m.visibleRows()
	if m.cursor.slot < m.offset {
		m.offset = m.cursor.slot
	}
	if m.cursor.slot >= m.offset+rows {
		m.offset = m.cursor.slot - rows + 1
	}
}

func (m *Model) visibleRows() int {
	// header, day row, status and help lines
	rows := m.height - 5
	if rows < 4 {
		rows = 4
	}
	return rows
}
