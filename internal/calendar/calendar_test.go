package calendar

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidplan/internal/model"
)

func newTestCalendar(t *testing.T, opts Options) *Calendar {
	t.Helper()
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsUnknownView(t *testing.T) {
	_, err := New(Options{InitialView: "dayGridMonth"})
	assert.ErrorIs(t, err, ErrUnsupportedView)

	c, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, ViewTimeGridWeek, c.Options().InitialView)
}

func TestSelect_ForwardsToCallback(t *testing.T) {
	var got []model.Selection
	c := newTestCalendar(t, Options{
		Selectable: true,
		Select: func(_ context.Context, sel model.Selection) {
			got = append(got, sel)
		},
	})

	t0 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	sel := model.Selection{Start: t0, End: t0.Add(time.Hour)}
	require.NoError(t, c.Select(context.Background(), sel))
	assert.Equal(t, []model.Selection{sel}, got)

	err := c.Select(context.Background(), model.Selection{Start: t0, End: t0.Add(-time.Minute)})
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Len(t, got, 1)
}

func TestSelect_Disabled(t *testing.T) {
	called := false
	c := newTestCalendar(t, Options{Select: func(context.Context, model.Selection) { called = true }})

	err := c.Select(context.Background(), model.Selection{})
	assert.ErrorIs(t, err, ErrNotSelectable)
	assert.False(t, called)
}

func TestAddEvent_SortedAndNotifies(t *testing.T) {
	c := newTestCalendar(t, Options{})
	changes := 0
	c.OnChange(func() { changes++ })

	t0 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	later := c.AddEvent("Swim", t0.Add(2*time.Hour), t0.Add(3*time.Hour))
	earlier := c.AddEvent("Piano practice", t0, t0.Add(45*time.Minute))

	assert.NotEmpty(t, later.ID)
	assert.NotEqual(t, later.ID, earlier.ID)
	assert.Equal(t, 2, changes)

	evs := c.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, "Piano practice", evs[0].Title)
	assert.Equal(t, "Swim", evs[1].Title)
}

func TestAddEvent_Concurrent(t *testing.T) {
	c := newTestCalendar(t, Options{})
	t0 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.AddEvent("block", t0.Add(time.Duration(i)*time.Minute), t0.Add(time.Hour))
		}(i)
	}
	wg.Wait()

	assert.Len(t, c.Events(), 50)
}

func TestMoveEvent(t *testing.T) {
	t0 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	locked := newTestCalendar(t, Options{})
	ev := locked.AddEvent("Read", t0, t0.Add(time.Hour))
	assert.ErrorIs(t, locked.MoveEvent(ev.ID, t0, t0), ErrNotEditable)

	c := newTestCalendar(t, Options{Editable: true})
	ev = c.AddEvent("Read", t0, t0.Add(time.Hour))
	require.NoError(t, c.MoveEvent(ev.ID, t0.Add(time.Hour), t0.Add(90*time.Minute)))
	assert.Equal(t, t0.Add(time.Hour), c.Events()[0].Start)

	assert.ErrorIs(t, c.MoveEvent("missing", t0, t0), ErrNotFound)
	assert.ErrorIs(t, c.MoveEvent(ev.ID, t0, t0.Add(-time.Minute)), ErrInvalidRange)
}

func TestWeekDays(t *testing.T) {
	// 2026-10-21 is a Wednesday.
	anchor := time.Date(2026, 10, 21, 15, 30, 0, 0, time.UTC)

	mon := newTestCalendar(t, Options{WeekStart: time.Monday})
	days := mon.WeekDays(anchor)
	require.Len(t, days, 7)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC), days[6])

	sun := newTestCalendar(t, Options{WeekStart: time.Sunday})
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), sun.WeekDays(anchor)[0])
}

func TestParseWeekStart(t *testing.T) {
	assert.Equal(t, time.Sunday, ParseWeekStart("Sunday"))
	assert.Equal(t, time.Monday, ParseWeekStart("monday"))
	assert.Equal(t, time.Monday, ParseWeekStart(""))
}

func TestSlots(t *testing.T) {
	c := newTestCalendar(t, Options{SlotMinutes: 30, DayStartHour: 9, DayEndHour: 11})
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	slots := c.Slots(day)
	require.Len(t, slots, 4)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), slots[0])
	assert.Equal(t, time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC), slots[3])
	assert.Equal(t, 30*time.Minute, c.SlotDuration())
}

func TestRender(t *testing.T) {
	c := newTestCalendar(t, Options{WeekStart: time.Monday})
	t0 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	c.AddEvent("Piano practice", t0, t0.Add(45*time.Minute))
	c.SetBackground([]model.Occurrence{{
		Summary: "School",
		Start:   t0.Add(-time.Hour),
		End:     t0,
	}})

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf, t0))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Mon 2026-10-19\n"))
	assert.Contains(t, out, "  ~ 08:00-09:00 School\n")
	assert.Contains(t, out, "  * 09:00-09:45 Piano practice\n")
	assert.Contains(t, out, "Sun 2026-10-25\n")
}

func TestExportICS(t *testing.T) {
	c := newTestCalendar(t, Options{})
	t0 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	ev := c.AddEvent("Piano practice", t0, t0.Add(45*time.Minute))

	var buf bytes.Buffer
	require.NoError(t, c.ExportICS(&buf))

	parsed, err := ical.ParseCalendar(&buf)
	require.NoError(t, err)
	events := parsed.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ev.ID, events[0].Id())
	assert.Equal(t, "Piano practice", events[0].GetProperty(ical.ComponentPropertySummary).Value)

	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(t0))
}
