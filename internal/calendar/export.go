package calendar

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ExportICS writes every plan event as a VEVENT in a single VCALENDAR.
func (c *Calendar) ExportICS(w io.Writer) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//kidplan//kidplan//EN")

	now := time.Now().UTC()
	for _, ev := range c.Events() {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
	}

	return cal.SerializeTo(w)
}
