package feed

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "kidplan/internal/log"
)

// ParsedEvent is a VEVENT before recurrence expansion.
type ParsedEvent struct {
	Source Source

	UID      string
	Summary  string
	Location string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time

	// RecurrenceID is set when this VEVENT overrides one instance of a
	// recurring UID.
	RecurrenceID *time.Time
}

// Parse reads one ICS payload. VEVENTs that cannot be read are logged and
// skipped; cancelled ones are dropped.
func Parse(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.ID, err)
	}

	var out []ParsedEvent
	for _, ve := range cal.Events() {
		if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
			continue
		}
		ev, err := parseVEvent(src, ve)
		if err != nil {
			appLog.Warn("feed: skipping vevent", "id", src.ID, "reason", err)
			continue
		}
		out = append(out, ev)
	}

	appLog.Debug("feed parsed", "id", src.ID, "events", len(out))
	return out, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	ev := ParsedEvent{Source: src}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}
	ev.AllDay = isDateValue(dtStart)

	var err error
	if ev.AllDay {
		ev.Start, err = ve.GetAllDayStartAt()
	} else {
		ev.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return ev, fmt.Errorf("DTSTART: %w", err)
	}

	if ev.AllDay {
		ev.End, err = ve.GetAllDayEndAt()
	} else {
		ev.End, err = ve.GetEndAt()
	}
	if err != nil || ev.End.Before(ev.Start) {
		// No DTEND: all-day events span the day, timed ones are instants.
		ev.End = ev.Start
		if ev.AllDay {
			ev.End = ev.Start.AddDate(0, 0, 1)
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(strings.TrimSpace(part), ev.Start.Location()); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseICSTime(p.Value, ev.Start.Location()); err == nil {
			ev.RecurrenceID = &t
		}
	}

	return ev, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime reads the basic DATE / DATE-TIME / UTC forms used by EXDATE
// and RECURRENCE-ID. Floating values are placed in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
