package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubBlobStorage(t *testing.T) {
	ctx := context.Background()
	stub := NewStubBlobStorage()

	t.Run("upload returns url and stores object", func(t *testing.T) {
		url, err := stub.Upload(ctx, "receipts/c1/r1.pdf", []byte("pdf-bytes"), "application/pdf")
		require.NoError(t, err)
		assert.Equal(t, "https://storage.example.com/receipts/c1/r1.pdf", url)
		assert.True(t, stub.Has("receipts/c1/r1.pdf"))
	})

	t.Run("upload requires key", func(t *testing.T) {
		_, err := stub.Upload(ctx, "", nil, "")
		assert.Error(t, err)
	})

	t.Run("delete removes object and is idempotent", func(t *testing.T) {
		require.NoError(t, stub.Delete(ctx, "receipts/c1/r1.pdf"))
		assert.False(t, stub.Has("receipts/c1/r1.pdf"))
		require.NoError(t, stub.Delete(ctx, "receipts/c1/r1.pdf"))
	})
}
