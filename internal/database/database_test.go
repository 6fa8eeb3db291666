package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rejects an unparsable URL", func(t *testing.T) {
		t.Parallel()
		pool, err := Connect(ctx, "postgres://user:pa ss@host:notaport/db")
		require.Error(t, err)
		require.Contains(t, err.Error(), "unable to parse database URL")
		require.Nil(t, pool)
	})

	t.Run("fails the ping on an unreachable host", func(t *testing.T) {
		t.Parallel()
		pool, err := Connect(ctx, "postgres://localhost:59999/dsw?connect_timeout=1")
		require.Error(t, err)
		require.Nil(t, pool)
	})
}
