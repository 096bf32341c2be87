package feed

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "kidplan/internal/log"
	"kidplan/internal/model"
)

const defaultMaxOccurrences = 500

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location is the display timezone; nil means time.Local.
	Location *time.Location

	// RangeStart / RangeEnd is the window occurrences must overlap.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxPerEvent caps instances produced from a single RRULE.
	MaxPerEvent int
}

// Expand turns parsed events into concrete occurrences inside the window,
// applying RRULE, EXDATE and RECURRENCE-ID overrides. The result is sorted
// by start. UIDs that hit the cap are returned in truncated.
func Expand(events []ParsedEvent, cfg ExpandConfig) (occ []model.Occurrence, truncated []string, err error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, nil, errors.New("expand: range end is before range start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxPerEvent <= 0 {
		cfg.MaxPerEvent = defaultMaxOccurrences
	}

	overrides := make(map[string][]ParsedEvent)
	var bases []ParsedEvent
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	for _, ev := range bases {
		var got []model.Occurrence
		hitCap := false
		if ev.RRule == "" {
			got = expandSingle(ev, overrides[ev.UID], cfg)
		} else {
			got, hitCap = expandRecurring(ev, overrides[ev.UID], cfg)
		}
		occ = append(occ, got...)
		if hitCap {
			truncated = append(truncated, ev.UID)
			appLog.Warn("expand: occurrences truncated", "uid", ev.UID, "cap", cfg.MaxPerEvent)
		}
	}

	sort.SliceStable(occ, func(i, j int) bool { return occ[i].Start.Before(occ[j].Start) })
	return occ, truncated, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Occurrence {
	if o, ok := findOverride(overrides, ev.Start); ok {
		ev = o
	}
	if !inWindow(ev.Start, ev.End, cfg) {
		return nil
	}
	return []model.Occurrence{toOccurrence(ev, ev.Start, ev.End, cfg.Location)}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	length := ev.End.Sub(ev.Start)
	// Widen the lower bound by the event length so instances that started
	// before the window but still run into it are kept.
	from := cfg.RangeStart.Add(-length).In(ev.Start.Location())
	to := cfg.RangeEnd.In(ev.Start.Location())
	starts := set.Between(from, to, true)

	hitCap := false
	if len(starts) > cfg.MaxPerEvent {
		starts = starts[:cfg.MaxPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		e := s.Add(length)
		base := ev
		if o, ok := findOverride(overrides, s); ok {
			base, s, e = o, o.Start, o.End
		}
		if !inWindow(s, e, cfg) {
			continue
		}
		out = append(out, toOccurrence(base, s, e, cfg.Location))
	}
	return out, hitCap
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.RecurrenceID != nil && o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func inWindow(start, end time.Time, cfg ExpandConfig) bool {
	if start.Equal(end) {
		return !start.Before(cfg.RangeStart) && start.Before(cfg.RangeEnd)
	}
	return start.Before(cfg.RangeEnd) && end.After(cfg.RangeStart)
}

func toOccurrence(ev ParsedEvent, start, end time.Time, loc *time.Location) model.Occurrence {
	s := start.In(loc)
	return model.Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: s.Format(time.RFC3339Nano),
		Summary:     ev.Summary,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       s,
		End:         end.In(loc),
	}
}
