package feed

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	appLog "kidplan/internal/log"
	"kidplan/internal/model"
)

// Sink receives the expanded occurrences after every refresh.
type Sink interface {
	SetBackground(occ []model.Occurrence)
}

// Refresher periodically fetches, parses and expands the configured feeds
// into a Sink, covering a window around the current week.
type Refresher struct {
	fetcher  *Fetcher
	sources  []Source
	sink     Sink
	loc      *time.Location
	backfill time.Duration
	horizon  time.Duration
	now      func() time.Time
}

func NewRefresher(fetcher *Fetcher, sources []Source, sink Sink, loc *time.Location) *Refresher {
	if loc == nil {
		loc = time.Local
	}
	return &Refresher{
		fetcher:  fetcher,
		sources:  sources,
		sink:     sink,
		loc:      loc,
		backfill: 7 * 24 * time.Hour,
		horizon:  35 * 24 * time.Hour,
		now:      time.Now,
	}
}

// Refresh runs one fetch/parse/expand cycle. Failing sources are skipped.
func (r *Refresher) Refresh(ctx context.Context) {
	if len(r.sources) == 0 {
		return
	}

	results, errs := r.fetcher.FetchAll(ctx, r.sources)

	var parsed []ParsedEvent
	for _, res := range results {
		evs, err := Parse(res.Source, res.Body)
		if err != nil {
			appLog.Error("feed parse failed", err, "id", res.Source.ID)
			continue
		}
		parsed = append(parsed, evs...)
	}

	now := r.now()
	occ, _, err := Expand(parsed, ExpandConfig{
		Location:   r.loc,
		RangeStart: now.Add(-r.backfill),
		RangeEnd:   now.Add(r.horizon),
	})
	if err != nil {
		appLog.Error("feed expand failed", err)
		return
	}

	r.sink.SetBackground(occ)
	appLog.Info("feeds refreshed", "sources", len(r.sources), "failed", len(errs), "occurrences", len(occ))
}

// Start refreshes once, then on every tick of spec (standard 5-field cron)
// until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithLocation(r.loc))
	if _, err := c.AddFunc(spec, func() { r.Refresh(ctx) }); err != nil {
		return err
	}

	go r.Refresh(ctx)
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}
