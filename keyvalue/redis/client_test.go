package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClient_GetSet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	require.NoError(t, mr.Set("greeting", "hello"))

	tests := []struct {
		name      string
		key       string
		wantValue string
		wantFound bool
	}{
		{name: "hit", key: "greeting", wantValue: "hello", wantFound: true},
		{name: "miss", key: "absent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, found, err := c.Get(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantValue, v)
		})
	}

	require.NoError(t, c.Set(ctx, "counter", "7"))
	got, err := mr.Get("counter")
	require.NoError(t, err)
	assert.Equal(t, "7", got)
	assert.Zero(t, mr.TTL("counter"))
}

func TestClient_Del(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		keys     []string
		expected int64
	}{
		{name: "no keys", expected: 0},
		{name: "missing key", keys: []string{"absent"}, expected: 0},
		{name: "some present", keys: []string{"a", "absent", "b"}, expected: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mr := newTestClient(t)
			require.NoError(t, mr.Set("a", "1"))
			require.NoError(t, mr.Set("b", "2"))

			n, err := c.Del(ctx, tt.keys...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestClient_ExpireAndTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	require.NoError(t, mr.Set("session", "x"))
	require.NoError(t, mr.Set("forever", "y"))

	n, err := c.Expire(ctx, "session", 60)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Expire(ctx, "absent", 60)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	tests := []struct {
		name     string
		key      string
		expected int64
	}{
		{name: "with expiry", key: "session", expected: 60},
		{name: "no expiry", key: "forever", expected: -1},
		{name: "missing key", key: "absent", expected: -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ttl, err := c.TTL(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ttl)
		})
	}

	mr.FastForward(61 * time.Second)
	_, found, err := c.Get(ctx, "session")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_Scan(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	for _, k := range []string{"user:2", "user:1", "order:1"} {
		require.NoError(t, mr.Set(k, "v"))
	}

	tests := []struct {
		name     string
		match    string
		expected []string
	}{
		{name: "all keys", expected: []string{"order:1", "user:1", "user:2"}},
		{name: "pattern", match: "user:*", expected: []string{"user:1", "user:2"}},
		{name: "no match", match: "cart:*", expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, keys, err := c.Scan(ctx, 0, tt.match, 10)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), cursor)
			assert.ElementsMatch(t, tt.expected, keys)
		})
	}
}

func TestClient_Lists(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	n, err := c.RPush(ctx, "queue", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.RPush(ctx, "queue", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.LPush(ctx, "queue", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.LLen(ctx, "queue")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.LLen(ctx, "absent")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	tests := []struct {
		name        string
		start, stop int64
		expected    []string
	}{
		{name: "whole list", start: 0, stop: -1, expected: []string{"a", "b", "c"}},
		{name: "head", start: 0, stop: 0, expected: []string{"a"}},
		{name: "tail", start: -2, stop: -1, expected: []string{"b", "c"}},
		{name: "out of range", start: 5, stop: 9, expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := c.LRange(ctx, "queue", tt.start, tt.stop)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestClient_WrongTypeIsReported(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	require.NoError(t, mr.Set("scalar", "1"))

	_, err := c.LPush(ctx, "scalar", "x")
	assert.ErrorContains(t, err, "WRONGTYPE")
}

func TestClient_NativeAndClose(t *testing.T) {
	c, mr := newTestClient(t)

	native, ok := c.Native().(interfaces.RedisNative)
	require.True(t, ok)
	require.NoError(t, native.Client.Ping(context.Background()).Err())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, goredis.ErrClosed)

	shared := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer shared.Close()
	borrowed, err := New(shared, false)
	require.NoError(t, err)
	require.NoError(t, borrowed.Close())
	assert.NoError(t, shared.Ping(context.Background()).Err())
}

func TestDial_Authenticated(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("3b37b7")
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	c, err := Dial(context.Background(), Config{Host: host, Port: port, Password: "3b37b7"})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Set(context.Background(), "k", "v"))

	_, err = Dial(context.Background(), Config{Host: host, Port: port, Password: "wrong"})
	assert.Error(t, err)
}

func TestMaker_ConnectsFromEnv(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("3b37b7")
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	t.Setenv(EnvHost, host)
	t.Setenv(EnvPort, port)
	t.Setenv(EnvPassword, "3b37b7")

	m := NewMaker()
	kv, err := m.Make()
	require.NoError(t, err)
	defer kv.Close()

	again, err := m.Make()
	require.NoError(t, err)
	assert.Same(t, kv, again)

	require.NoError(t, kv.Set(context.Background(), "counter", "1"))
	got, err := mr.Get("counter")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}
