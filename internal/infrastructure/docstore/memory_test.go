package docstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stockDoc struct {
	ID        string  `bson:"_id,omitempty"`
	CompanyID string  `bson:"company_id"`
	Name      string  `bson:"name"`
	Stock     float64 `bson:"stock"`
}

func TestMemoryStoreCRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	t.Run("create assigns id", func(t *testing.T) {
		id, err := store.Create(ctx, "products", &stockDoc{CompanyID: "c1", Name: "Widget", Stock: 10})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		var got stockDoc
		require.NoError(t, store.FindByID(ctx, "products", id, &got))
		assert.Equal(t, "Widget", got.Name)
		assert.Equal(t, 10.0, got.Stock)
	})

	t.Run("create keeps caller id", func(t *testing.T) {
		id, err := store.Create(ctx, "products", &stockDoc{ID: "fixed", CompanyID: "c1", Name: "Gadget"})
		require.NoError(t, err)
		assert.Equal(t, "fixed", id)
	})

	t.Run("set upserts", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "products", "p9", &stockDoc{CompanyID: "c2", Name: "Bolt", Stock: 3}))
		require.NoError(t, store.Set(ctx, "products", "p9", &stockDoc{CompanyID: "c2", Name: "Bolt", Stock: 5}))

		var got stockDoc
		require.NoError(t, store.FindByID(ctx, "products", "p9", &got))
		assert.Equal(t, 5.0, got.Stock)
	})

	t.Run("update patches fields", func(t *testing.T) {
		require.NoError(t, store.Update(ctx, "products", "p9", map[string]any{"name": "Hex Bolt"}))

		var got stockDoc
		require.NoError(t, store.FindByID(ctx, "products", "p9", &got))
		assert.Equal(t, "Hex Bolt", got.Name)
		assert.Equal(t, 5.0, got.Stock)
	})

	t.Run("update missing returns not found", func(t *testing.T) {
		err := store.Update(ctx, "products", "absent", map[string]any{"name": "x"})
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "products", "p9"))
		require.NoError(t, store.Delete(ctx, "products", "p9"))

		var got stockDoc
		err := store.FindByID(ctx, "products", "p9", &got)
		assert.Error(t, err)
	})
}

func TestMemoryStoreFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "clients", "a", &stockDoc{CompanyID: "c1", Name: "Acme"}))
	require.NoError(t, store.Set(ctx, "clients", "b", &stockDoc{CompanyID: "c2", Name: "Beta"}))
	require.NoError(t, store.Set(ctx, "clients", "c", &stockDoc{CompanyID: "c1", Name: "Cobalt"}))

	t.Run("filter narrows by field", func(t *testing.T) {
		var got []stockDoc
		require.NoError(t, store.Find(ctx, "clients", map[string]any{"company_id": "c1"}, &got))
		require.Len(t, got, 2)
		assert.Equal(t, "Acme", got[0].Name)
		assert.Equal(t, "Cobalt", got[1].Name)
	})

	t.Run("empty filter returns all", func(t *testing.T) {
		var got []stockDoc
		require.NoError(t, store.Find(ctx, "clients", nil, &got))
		assert.Len(t, got, 3)
	})

	t.Run("unknown collection returns empty", func(t *testing.T) {
		var got []stockDoc
		require.NoError(t, store.Find(ctx, "missing", nil, &got))
		assert.Empty(t, got)
	})
}

func TestMemoryStoreIncrementConcurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "products", "p1", &stockDoc{CompanyID: "c1", Name: "Widget", Stock: 10}))

	var wg sync.WaitGroup
	deltas := []float64{-3, -4}
	for _, delta := range deltas {
		wg.Add(1)
		go func(d float64) {
			defer wg.Done()
			assert.NoError(t, store.Increment(ctx, "products", "p1", "stock", d))
		}(delta)
	}
	wg.Wait()

	var got stockDoc
	require.NoError(t, store.FindByID(ctx, "products", "p1", &got))
	assert.Equal(t, 3.0, got.Stock)
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("initial snapshot delivered immediately", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Set(ctx, "products", "p1", &stockDoc{CompanyID: "c1", Name: "Widget"}))

		sub, err := store.Subscribe(ctx, Query{Collection: "products"})
		require.NoError(t, err)
		defer sub.Close()

		snap := <-sub.Snapshots()
		assert.Equal(t, uint64(1), snap.Seq)
		require.Len(t, snap.Docs, 1)
	})

	t.Run("each write replaces the snapshot wholesale", func(t *testing.T) {
		store := NewMemoryStore()
		sub, err := store.Subscribe(ctx, Query{Collection: "products", Filter: map[string]any{"company_id": "c1"}})
		require.NoError(t, err)
		defer sub.Close()

		snap := <-sub.Snapshots()
		assert.Empty(t, snap.Docs)

		require.NoError(t, store.Set(ctx, "products", "p1", &stockDoc{CompanyID: "c1", Name: "Widget"}))
		require.NoError(t, store.Set(ctx, "products", "p2", &stockDoc{CompanyID: "c2", Name: "Other"}))
		require.NoError(t, store.Delete(ctx, "products", "p1"))

		// Slow consumer: only the latest snapshot is buffered.
		snap = <-sub.Snapshots()
		assert.Empty(t, snap.Docs)
		assert.Greater(t, snap.Seq, uint64(1))
	})

	t.Run("sequence is monotonic", func(t *testing.T) {
		store := NewMemoryStore()
		sub, err := store.Subscribe(ctx, Query{Collection: "products"})
		require.NoError(t, err)
		defer sub.Close()

		var last uint64
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Set(ctx, "products", "p1", &stockDoc{CompanyID: "c1", Stock: float64(i)}))
			snap := <-sub.Snapshots()
			assert.Greater(t, snap.Seq, last)
			last = snap.Seq
		}
	})

	t.Run("close is idempotent and ends the channel", func(t *testing.T) {
		store := NewMemoryStore()
		sub, err := store.Subscribe(ctx, Query{Collection: "products"})
		require.NoError(t, err)

		<-sub.Snapshots()
		sub.Close()
		sub.Close()

		_, open := <-sub.Snapshots()
		assert.False(t, open)

		// Writes after close must not panic on a closed channel.
		require.NoError(t, store.Set(ctx, "products", "p1", &stockDoc{CompanyID: "c1"}))
	})

	t.Run("decode all types a snapshot", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Set(ctx, "products", "p1", &stockDoc{CompanyID: "c1", Name: "Widget", Stock: 2}))

		sub, err := store.Subscribe(ctx, Query{Collection: "products"})
		require.NoError(t, err)
		defer sub.Close()

		snap := <-sub.Snapshots()
		docs, err := DecodeAll[stockDoc](snap)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Widget", docs[0].Name)
	})
}
