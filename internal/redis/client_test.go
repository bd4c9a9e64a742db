package redisclient

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := Connect(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	defer rdb.Close()

	assert.Equal(t, 10, rdb.Options().PoolSize)
	assert.NoError(t, Pinger(rdb)(context.Background()))
}

func TestConnectUnreachableReturnsClient(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb, err := Connect(context.Background(), Options{Addr: addr, PoolSize: 2})
	require.NotNil(t, rdb)
	defer rdb.Close()

	assert.ErrorIs(t, err, ErrLockUnavailable)
	assert.Error(t, Pinger(rdb)(context.Background()))
}
