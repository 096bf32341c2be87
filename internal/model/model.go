package model

import "time"

// ChildID is the placeholder child every import is filed under until
// child profiles are resolved server-side.
const ChildID = "test_kid"

// Selection is a time range the user drew on the week grid.
// The grid guarantees Start <= End.
type Selection struct {
	Start time.Time
	End   time.Time
}

// PlanEvent is a titled block shown on the calendar.
type PlanEvent struct {
	ID    string
	Title string
	Start time.Time
	End   time.Time
}

// ImportRequest is the body of POST /calendar/import.
type ImportRequest struct {
	ChildID         string  `json:"child_id"`
	EventTitle      string  `json:"event_title"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// ImportResponse is the reply of POST /calendar/import and
// PUT /calendar/{child_id}/update.
type ImportResponse struct {
	Message string `json:"message"`
}

// UpdateRequest is the body of PUT /calendar/{child_id}/update.
type UpdateRequest struct {
	OldTitle    string  `json:"old_title"`
	NewTitle    string  `json:"new_title"`
	NewDuration float64 `json:"new_duration"`
}

// LogEntry is one raw import record kept per child.
type LogEntry struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// ChildTask is the task-list row an import is synced into.
type ChildTask struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
	Source   string  `json:"source"`
	Status   string  `json:"status"`
}

// Occurrence is a single concrete instance of an event from an external
// ICS feed, after recurrence expansion and timezone normalization.
type Occurrence struct {
	SourceID string
	UID      string

	// InstanceKey distinguishes instances of the same recurring UID.
	InstanceKey string

	Summary  string
	Location string
	AllDay   bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// DurationMinutes returns the selection length in minutes without rounding.
func DurationMinutes(sel Selection) float64 {
	return sel.End.Sub(sel.Start).Minutes()
}

// NewImportRequest builds the payload for a titled selection.
func NewImportRequest(title string, sel Selection) ImportRequest {
	return ImportRequest{
		ChildID:         ChildID,
		EventTitle:      title,
		DurationMinutes: DurationMinutes(sel),
	}
}
