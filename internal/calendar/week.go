package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "kidplan/internal/log"
)

// ParseWeekStart maps a config value to a weekday; anything other than
// "sunday" means Monday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(s, "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// WeekStartOf returns local midnight of the first day of the week that
// contains anchor.
func (c *Calendar) WeekStartOf(anchor time.Time) time.Time {
	opts := c.Options()
	a := anchor.In(opts.Location)
	midnight := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, opts.Location)
	offset := (int(midnight.Weekday()) - int(opts.WeekStart) + 7) % 7
	return midnight.AddDate(0, 0, -offset)
}

// WeekDays returns local midnight for each of the seven days in the week
// containing anchor.
func (c *Calendar) WeekDays(anchor time.Time) []time.Time {
	start := c.WeekStartOf(anchor)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   7,
		Dtstart: start,
	})
	if err != nil {
		appLog.Error("calendar: daily rule failed; stepping manually", err)
		days := make([]time.Time, 7)
		for i := range days {
			days[i] = start.AddDate(0, 0, i)
		}
		return days
	}
	return r.All()
}

// Slots returns the start time of every grid slot on day, from
// DayStartHour up to (not including) DayEndHour.
func (c *Calendar) Slots(day time.Time) []time.Time {
	opts := c.Options()
	d := day.In(opts.Location)
	n := (opts.DayEndHour - opts.DayStartHour) * 60 / opts.SlotMinutes
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		mins := opts.DayStartHour*60 + i*opts.SlotMinutes
		out = append(out, time.Date(d.Year(), d.Month(), d.Day(), 0, mins, 0, 0, opts.Location))
	}
	return out
}

// SlotDuration is the length of one grid slot.
func (c *Calendar) SlotDuration() time.Duration {
	return time.Duration(c.Options().SlotMinutes) * time.Minute
}

// Render writes a plain-text agenda of the week containing anchor.
// Background occurrences are marked with "~".
func (c *Calendar) Render(w io.Writer, anchor time.Time) error {
	loc := c.Options().Location
	for _, day := range c.WeekDays(anchor) {
		next := day.AddDate(0, 0, 1)
		if _, err := fmt.Fprintf(w, "%s\n", day.Format("Mon 2006-01-02")); err != nil {
			return err
		}
		for _, occ := range c.BackgroundBetween(day, next) {
			line := fmt.Sprintf("  ~ %s-%s %s\n", occ.Start.In(loc).Format("15:04"), occ.End.In(loc).Format("15:04"), occ.Summary)
			if occ.AllDay {
				line = fmt.Sprintf("  ~ all-day     %s\n", occ.Summary)
			}
			if _, err := io.WriteString(w, line); err != nil {
				return err
			}
		}
		for _, ev := range c.EventsBetween(day, next) {
			if _, err := fmt.Fprintf(w, "  * %s-%s %s\n", ev.Start.In(loc).Format("15:04"), ev.End.In(loc).Format("15:04"), ev.Title); err != nil {
				return err
			}
		}
	}
	return nil
}
