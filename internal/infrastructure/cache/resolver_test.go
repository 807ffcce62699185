package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotu/molkit/internal/config"
)

type staticResolver struct {
	cid   int64
	calls int
}

func (s *staticResolver) ResolveName(context.Context, string) (int64, error) {
	s.calls++
	return s.cid, nil
}

func TestNewCachedResolver_DisabledWithoutAddr(t *testing.T) {
	next := &staticResolver{cid: 2244}
	r := NewCachedResolver(config.RedisConfig{}, next, nil)
	assert.Same(t, next, r, "empty addr must bypass the cache entirely")

	cid, err := r.ResolveName(context.Background(), "aspirin")
	require.NoError(t, err)
	assert.Equal(t, int64(2244), cid)
	assert.Equal(t, 1, next.calls)
}

func TestCachedResolver_KeyNormalization(t *testing.T) {
	r := NewCachedResolver(config.RedisConfig{Addr: "localhost:6379"}, &staticResolver{}, nil)
	cr, ok := r.(*CachedResolver)
	require.True(t, ok)

	assert.Equal(t, "molkit:cid:aspirin", cr.key("  Aspirin "))
	assert.Equal(t, cr.key("ASPIRIN"), cr.key("aspirin"))
}
