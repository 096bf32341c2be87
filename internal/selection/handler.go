// Package selection turns a drawn time range into a plan event: it asks for
// a title, shows the event right away and persists it in the background.
package selection

import (
	"context"
	"sync"

	"kidplan/internal/calendar"
	appLog "kidplan/internal/log"
	"kidplan/internal/model"
)

// UI is the user-interaction capability the handler needs.
type UI interface {
	// RequestTitle asks for a free-text title. ok is false when the user
	// cancelled.
	RequestTitle(ctx context.Context, prompt string) (title string, ok bool, err error)
	// Notify shows message and returns once it has been handed to the UI.
	Notify(message string)
}

// Importer persists an import request.
type Importer interface {
	Import(ctx context.Context, req model.ImportRequest) (model.ImportResponse, error)
}

// Labels holds the user-facing text used by the handler.
type Labels struct {
	Prompt        string
	FailurePrefix string
}

// LabelsFor returns the labels for a locale; unknown locales get "zh".
func LabelsFor(locale string) Labels {
	switch locale {
	case "en":
		return Labels{Prompt: "Enter your plan here", FailurePrefix: "Import failed: "}
	default:
		return Labels{Prompt: "Enter your plan here", FailurePrefix: "导入失败："}
	}
}

// Handler bridges calendar selections to the backend.
type Handler struct {
	cal    *calendar.Calendar
	ui     UI
	imp    Importer
	labels Labels

	inflight sync.WaitGroup
}

// NewHandler returns a Handler that adds selected ranges to cal, asks ui for
// titles and saves through imp.
func NewHandler(cal *calendar.Calendar, ui UI, imp Importer, labels Labels) *Handler {
	return &Handler{
		cal:    cal,
		ui:     ui,
		imp:    imp,
		labels: labels,
	}
}

// OnSelect prompts for a title, adds the event to the calendar and starts
// persisting it. An empty or cancelled title aborts with no side effects.
// The save runs on its own goroutine; OnSelect does not wait for it.
func (h *Handler) OnSelect(ctx context.Context, sel model.Selection) {
	title, ok, err := h.ui.RequestTitle(ctx, h.labels.Prompt)
	if err != nil {
		appLog.Error("selection: title prompt failed", err)
		return
	}
	if !ok || title == "" {
		appLog.Debug("selection: cancelled", "start", sel.Start, "end", sel.End)
		return
	}

	req := model.NewImportRequest(title, sel)
	ev := h.cal.AddEvent(title, sel.Start, sel.End)
	appLog.Info("selection: event added", "id", ev.ID, "title", title, "duration_minutes", req.DurationMinutes)

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.persist(ctx, req)
	}()
}

// Wait blocks until every save started by OnSelect has reported back.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

// persist sends one import and reports the outcome. Transport failures and
// unreadable replies share the same path.
func (h *Handler) persist(ctx context.Context, req model.ImportRequest) {
	resp, err := h.imp.Import(ctx, req)
	if err != nil {
		appLog.Error("selection: import failed", err, "title", req.EventTitle)
		h.ui.Notify(h.labels.FailurePrefix + err.Error())
		return
	}
	h.ui.Notify(resp.Message)
}
