package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qserrors "github.com/vnykmshr/queuestat/pkg/common/errors"
)

func newTestStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := NewClient(ClientOptions{
		Addrs:   []string{mr.Addr()},
		Timeout: time.Second,
	})
	s, err := NewRedis(Config{Redis: client})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, mr
}

func TestNewRedis_Validation(t *testing.T) {
	_, err := NewRedis(Config{})
	require.Error(t, err)
	assert.True(t, qserrors.IsValidationError(err))

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() { _ = client.Close() }()

	_, err = NewRedis(Config{Redis: client, Timeout: -time.Second})
	require.Error(t, err)
	assert.True(t, qserrors.IsConfiguration(err))

	s, err := NewRedis(Config{Redis: client})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Timeout, s.timeout)
}

func TestRedis_HGetAll(t *testing.T) {
	s, mr := newTestStore(t)
	mr.HSet("tumblr:work_stats", "alice", "10", "bob", "7")

	fields, err := s.HGetAll(context.Background(), "tumblr:work_stats")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "10", "bob": "7"}, fields)

	fields, err = s.HGetAll(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestRedis_SCard(t *testing.T) {
	s, mr := newTestStore(t)
	_, err := mr.SAdd("tumblr:queue:posts", "a", "b", "c")
	require.NoError(t, err)

	n, err := s.SCard(context.Background(), "tumblr:queue:posts")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.SCard(context.Background(), "tumblr:queue:blogs")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedis_WrongType(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set("tumblr:queue:posts", "not a set"))

	_, err := s.SCard(context.Background(), "tumblr:queue:posts")
	require.Error(t, err)
	assert.ErrorIs(t, err, qserrors.ErrStoreUnavailable)

	var opErr *qserrors.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpSCard, opErr.Operation)
	assert.Contains(t, opErr.Error(), "key tumblr:queue:posts")
}

func TestRedis_ServerDown(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))

	mr.Close()

	_, err := s.HGetAll(context.Background(), "tumblr:work_stats")
	require.Error(t, err)
	assert.ErrorIs(t, err, qserrors.ErrStoreUnavailable)
	assert.True(t, qserrors.IsRetryable(err))

	assert.Error(t, s.Ping(context.Background()))
}

func TestRedis_CanceledContext(t *testing.T) {
	s, _ := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SCard(ctx, "tumblr:queue:posts")
	require.Error(t, err)
	assert.ErrorIs(t, err, qserrors.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(OpPing, "", nil))

	err := wrapError(OpSCard, "k", context.DeadlineExceeded)
	assert.ErrorIs(t, err, qserrors.ErrTimeout)
	assert.ErrorIs(t, err, qserrors.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, qserrors.IsTemporary(err))

	var opErr *qserrors.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "store", opErr.Module)
	assert.Equal(t, OpSCard, opErr.Operation)
	assert.Equal(t, "key k", opErr.Context)
	assert.Equal(t, "store.SCARD failed: store unavailable: operation timed out: context deadline exceeded (key k)", err.Error())

	err = wrapError(OpHGetAll, "k", errors.New("READONLY"))
	assert.False(t, errors.Is(err, qserrors.ErrTimeout))
	assert.ErrorIs(t, err, qserrors.ErrStoreUnavailable)
	assert.True(t, qserrors.IsRetryable(err))

	require.ErrorAs(t, wrapError(OpPing, "", errors.New("EOF")), &opErr)
	assert.Empty(t, opErr.Context)
}
