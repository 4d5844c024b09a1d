package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	defer rdb.Close()
	assert.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), addr, "", 0)
	assert.ErrorContains(t, err, addr)
}
