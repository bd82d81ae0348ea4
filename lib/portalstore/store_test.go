package portalstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"magister-backend/lib/timezone"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestStore(t *testing.T) {
	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	store, err := NewStore(sqlite)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		_, ok, err := store.Latest(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	}

	now := timezone.Now().Truncate(time.Second)
	{
		err := store.Push(ctx, Run{
			Time:     now.Add(-time.Hour),
			Success:  true,
			Document: json.RawMessage(`{"last_update":"2024-09-02 10:25:00"}`),
		})
		require.NoError(t, err)
	}
	{
		err := store.Push(ctx, Run{
			Time:        now,
			Success:     false,
			NeedsReauth: true,
			Error:       "authentication required: visit website",
		})
		require.NoError(t, err)
	}

	{
		run, ok, err := store.Latest(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, run.Success)
		require.True(t, run.NeedsReauth)
		require.Equal(t, "authentication required: visit website", run.Error)
		require.Nil(t, run.Document)
		require.Equal(t, now.Unix(), run.Time.Unix())
	}
	{
		run, ok, err := store.LatestDocument(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, run.Success)
		require.False(t, run.NeedsReauth)
		require.JSONEq(t, `{"last_update":"2024-09-02 10:25:00"}`, string(run.Document))
	}
}
