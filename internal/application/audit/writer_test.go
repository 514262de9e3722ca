package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/domain/activity"
	"github.com/myfin/backend/internal/infrastructure/docstore"
)

func TestWriterRecord(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	writer := NewWriter(store, zap.NewNop()).WithClock(func() time.Time { return at })

	t.Run("records entry with actor and company", func(t *testing.T) {
		writer.Record(ctx, "Created Invoice", "INV-000123", "alice", "c1", "Acme Sdn Bhd")

		entries, err := writer.List(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Created Invoice", entries[0].Action)
		assert.Equal(t, "INV-000123", entries[0].Details)
		assert.Equal(t, "alice", entries[0].User)
		assert.Equal(t, "Acme Sdn Bhd", entries[0].Company)
		assert.Equal(t, at.Format(time.RFC3339), entries[0].Date)
	})

	t.Run("missing actor and company use sentinels", func(t *testing.T) {
		writer.Record(ctx, "Startup", "", "", "", "")

		entries, err := writer.List(ctx, "")
		require.NoError(t, err)

		var found *activity.Activity
		for i := range entries {
			if entries[i].Action == "Startup" {
				found = &entries[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, activity.SystemUser, found.User)
		assert.Equal(t, activity.GlobalCompany, found.Company)
	})

	t.Run("list scopes by company", func(t *testing.T) {
		writer.Record(ctx, "Created Client", "Beta Ltd", "bob", "c2", "Beta Ltd")

		entries, err := writer.List(ctx, "c2")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Created Client", entries[0].Action)
	})
}
