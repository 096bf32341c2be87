package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "kidplan/internal/log"
	"kidplan/internal/model"
)

// ViewTimeGridWeek is the only supported view: seven day columns split
// into fixed-length time slots.
const ViewTimeGridWeek = "timeGridWeek"

var (
	ErrUnsupportedView = errors.New("calendar: unsupported view")
	ErrNotSelectable   = errors.New("calendar: selection is disabled")
	ErrNotEditable     = errors.New("calendar: editing is disabled")
	ErrInvalidRange    = errors.New("calendar: end is before start")
	ErrNotFound        = errors.New("calendar: event not found")
)

// SelectFunc receives a user-drawn selection.
type SelectFunc func(ctx context.Context, sel model.Selection)

// Options configures a Calendar at construction time.
type Options struct {
	InitialView string
	Editable    bool
	Selectable  bool
	Select      SelectFunc

	// WeekStart is the first column of the grid; the zero value is Sunday.
	WeekStart    time.Weekday
	Location     *time.Location
	SlotMinutes  int
	DayStartHour int
	DayEndHour   int
}

// Calendar holds plan events and read-only background occurrences for a
// week view. It is safe for concurrent use: the UI loop reads it while
// selection handlers add to it from other goroutines.
type Calendar struct {
	mu sync.RWMutex

	opts       Options
	events     []model.PlanEvent
	background []model.Occurrence
	onChange   []func()
}

// New validates opts, fills defaults and returns a Calendar.
func New(opts Options) (*Calendar, error) {
	if opts.InitialView == "" {
		opts.InitialView = ViewTimeGridWeek
	}
	if opts.InitialView != ViewTimeGridWeek {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedView, opts.InitialView)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = 15
	}
	if opts.DayEndHour <= opts.DayStartHour {
		opts.DayStartHour, opts.DayEndHour = 0, 24
	}
	return &Calendar{opts: opts}, nil
}

// Options returns a copy of the construction options.
func (c *Calendar) Options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

// OnSelect replaces the selection callback.
func (c *Calendar) OnSelect(fn SelectFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Select = fn
}

// OnChange registers fn to run after every mutation of events or background.
// fn runs on the mutating goroutine, outside the lock.
func (c *Calendar) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Select forwards a selection to the registered callback. It blocks for as
// long as the callback does.
func (c *Calendar) Select(ctx context.Context, sel model.Selection) error {
	c.mu.RLock()
	selectable := c.opts.Selectable
	fn := c.opts.Select
	c.mu.RUnlock()

	if !selectable {
		return ErrNotSelectable
	}
	if sel.End.Before(sel.Start) {
		return ErrInvalidRange
	}
	if fn == nil {
		appLog.Debug("calendar: selection without handler", "start", sel.Start.Format(time.RFC3339))
		return nil
	}
	fn(ctx, sel)
	return nil
}

// AddEvent stores a new plan event and returns it with its assigned ID.
func (c *Calendar) AddEvent(title string, start, end time.Time) model.PlanEvent {
	ev := model.PlanEvent{
		ID:    uuid.NewString(),
		Title: title,
		Start: start,
		End:   end,
	}

	c.mu.Lock()
	c.events = append(c.events, ev)
	sortEvents(c.events)
	listeners := c.listeners()
	c.mu.Unlock()

	notify(listeners)
	return ev
}

// MoveEvent changes the time range of an existing event. Moves stay local.
func (c *Calendar) MoveEvent(id string, start, end time.Time) error {
	if end.Before(start) {
		return ErrInvalidRange
	}

	c.mu.Lock()
	if !c.opts.Editable {
		c.mu.Unlock()
		return ErrNotEditable
	}
	idx := -1
	for i := range c.events {
		if c.events[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	c.events[idx].Start = start
	c.events[idx].End = end
	sortEvents(c.events)
	listeners := c.listeners()
	c.mu.Unlock()

	notify(listeners)
	return nil
}

// Events returns a snapshot of all plan events ordered by start.
func (c *Calendar) Events() []model.PlanEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.PlanEvent, len(c.events))
	copy(out, c.events)
	return out
}

// EventsBetween returns plan events overlapping [from, to).
func (c *Calendar) EventsBetween(from, to time.Time) []model.PlanEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.PlanEvent
	for _, ev := range c.events {
		if overlaps(ev.Start, ev.End, from, to) {
			out = append(out, ev)
		}
	}
	return out
}

// SetBackground replaces the external occurrences drawn behind plan events.
func (c *Calendar) SetBackground(occ []model.Occurrence) {
	cp := make([]model.Occurrence, len(occ))
	copy(cp, occ)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Start.Before(cp[j].Start) })

	c.mu.Lock()
	c.background = cp
	listeners := c.listeners()
	c.mu.Unlock()

	notify(listeners)
}

// BackgroundBetween returns background occurrences overlapping [from, to).
func (c *Calendar) BackgroundBetween(from, to time.Time) []model.Occurrence {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Occurrence
	for _, occ := range c.background {
		if overlaps(occ.Start, occ.End, from, to) {
			out = append(out, occ)
		}
	}
	return out
}

func (c *Calendar) listeners() []func() {
	out := make([]func(), len(c.onChange))
	copy(out, c.onChange)
	return out
}

func notify(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func sortEvents(evs []model.PlanEvent) {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Start.Before(evs[j].Start) })
}

// overlaps treats zero-length ranges as a point that must fall inside [bStart, bEnd).
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aStart.Equal(aEnd) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
