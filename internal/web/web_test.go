package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidplan/internal/importer"
	"kidplan/internal/model"
	"kidplan/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kidplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(NewServer(st).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestImport_ThenLogAndTasks(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/calendar/import",
		`{"child_id":"test_kid","event_title":"Piano practice","duration_minutes":45}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Event imported and synced to child task list.", body["message"])

	client := importer.NewClient(srv.URL, nil)
	entries, err := client.Log(context.Background(), "test_kid")
	require.NoError(t, err)
	assert.Equal(t, []model.LogEntry{{Title: "Piano practice", Duration: 45}}, entries)

	resp, err := http.Get(srv.URL + "/calendar/test_kid/tasks")
	require.NoError(t, err)
	defer resp.Body.Close()
	var tasks []model.ChildTask
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tasks))
	assert.Equal(t, []model.ChildTask{{Name: "Piano practice", Duration: 45, Source: "calendar", Status: "pending"}}, tasks)
}

func TestImport_ValidatesBody(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"NotJSON", `child_id=test_kid`},
		{"MissingChild", `{"event_title":"x","duration_minutes":1}`},
		{"MissingTitle", `{"child_id":"test_kid","duration_minutes":1}`},
		{"MissingDuration", `{"child_id":"test_kid","event_title":"x"}`},
		{"NegativeDuration", `{"child_id":"test_kid","event_title":"x","duration_minutes":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, http.MethodPost, srv.URL+"/calendar/import", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, status)
			assert.NotEmpty(t, body["detail"])
			assert.NotContains(t, body, "message")
		})
	}
}

func TestImport_WrongMethod(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/calendar/import")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLog_UnknownChildIsEmptyArray(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/calendar/nobody/log")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "[]", string(raw))
}

func TestUpdate(t *testing.T) {
	srv := newTestServer(t)
	client := importer.NewClient(srv.URL, nil)
	ctx := context.Background()

	_, err := client.Import(ctx, model.ImportRequest{ChildID: "test_kid", EventTitle: "Swim", DurationMinutes: 60})
	require.NoError(t, err)

	resp, err := client.Update(ctx, "test_kid", model.UpdateRequest{OldTitle: "Swim", NewTitle: "Swim club", NewDuration: 90})
	require.NoError(t, err)
	assert.Equal(t, "Event updated successfully.", resp.Message)

	entries, err := client.Log(ctx, "test_kid")
	require.NoError(t, err)
	assert.Equal(t, []model.LogEntry{{Title: "Swim club", Duration: 90}}, entries)

	_, err = client.Update(ctx, "test_kid", model.UpdateRequest{OldTitle: "Swim", NewTitle: "x", NewDuration: 1})
	assert.ErrorIs(t, err, importer.ErrNotFound)

	status, body := do(t, http.MethodPut, srv.URL+"/calendar/test_kid/update", `{"old_title":"Swim club"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.NotEmpty(t, body["detail"])
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	status, body = do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
