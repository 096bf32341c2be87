package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidplan/internal/model"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "kidplan.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestAppendImport_WritesLogAndTask(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendImport(ctx, "test_kid", "Piano practice", 45))
	require.NoError(t, s.AppendImport(ctx, "test_kid", "Swim", 60))
	require.NoError(t, s.AppendImport(ctx, "other_kid", "Chess", 30))

	log, err := s.Log(ctx, "test_kid")
	require.NoError(t, err)
	assert.Equal(t, []model.LogEntry{
		{Title: "Piano practice", Duration: 45},
		{Title: "Swim", Duration: 60},
	}, log)

	tasks, err := s.Tasks(ctx, "test_kid")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, model.ChildTask{Name: "Piano practice", Duration: 45, Source: "calendar", Status: "pending"}, tasks[0])
}

func TestLog_EmptyIsNotNil(t *testing.T) {
	s, _ := openTestStore(t)

	log, err := s.Log(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.Empty(t, log)
}

func TestRename(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendImport(ctx, "test_kid", "Swim", 60))
	require.NoError(t, s.AppendImport(ctx, "test_kid", "Swim", 30))

	require.NoError(t, s.Rename(ctx, "test_kid", "Swim", "Swim club", 90))

	log, err := s.Log(ctx, "test_kid")
	require.NoError(t, err)
	assert.Equal(t, []model.LogEntry{
		{Title: "Swim club", Duration: 90},
		{Title: "Swim", Duration: 30},
	}, log)

	tasks, err := s.Tasks(ctx, "test_kid")
	require.NoError(t, err)
	assert.Equal(t, "Swim club", tasks[0].Name)
	assert.Equal(t, "Swim", tasks[1].Name)

	assert.ErrorIs(t, s.Rename(ctx, "test_kid", "Chess", "x", 1), ErrNotFound)
	assert.ErrorIs(t, s.Rename(ctx, "other_kid", "Swim", "x", 1), ErrNotFound)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	s, path := openTestStore(t)
	require.NoError(t, s.AppendImport(context.Background(), "test_kid", "Read", 20))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	log, err := reopened.Log(context.Background(), "test_kid")
	require.NoError(t, err)
	assert.Len(t, log, 1)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
