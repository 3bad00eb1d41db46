package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/ruteri/serverless-sdk/interfaces"
)

// Environment variables describing the key-value store.
const (
	EnvHost     = "__NIM_REDIS_IP"
	EnvPassword = "__NIM_REDIS_PASSWORD"
	EnvPort     = "__NIM_REDIS_PORT"

	DefaultPort = "6379"
)

const pingTimeout = 5 * time.Second

var ErrNilClient = errors.New("redis: nil client")

// Config holds the connection parameters of the store.
type Config struct {
	Host     string
	Port     string
	Password string
}

// ConfigFromEnv reads the connection parameters from the environment. Host
// and password are both required; without them there is no store and
// ErrNoKeyValueStore is returned.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Host:     os.Getenv(EnvHost),
		Password: os.Getenv(EnvPassword),
		Port:     os.Getenv(EnvPort),
	}
	if cfg.Host == "" || cfg.Password == "" {
		return Config{}, interfaces.ErrNoKeyValueStore
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	return cfg, nil
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Client implements interfaces.KeyValueClient over a go-redis client.
type Client struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

// New wraps rdb. The returned client closes rdb on Close only when
// closeClient is set.
func New(rdb goredis.UniversalClient, closeClient bool) (*Client, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	return &Client{rdb: rdb, closeClient: closeClient}, nil
}

// Dial connects to the store described by cfg and verifies the connection
// with a PING.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}
	return New(rdb, true)
}

func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	return c.rdb.Set(ctx, key, value, 0).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return c.rdb.Del(ctx, keys...).Result()
}

func (c *Client) Expire(ctx context.Context, key string, seconds int64) (int64, error) {
	ok, err := c.rdb.Expire(ctx, key, time.Duration(seconds)*time.Second).Result()
	if err != nil {
		return 0, err
	}
	if ok {
		return 1, nil
	}
	return 0, nil
}

func (c *Client) TTL(ctx context.Context, key string) (int64, error) {
	d, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return ttlSeconds(d), nil
}

// ttlSeconds converts a TTL reply to whole seconds. go-redis reports the
// special replies -1 (no expiry) and -2 (missing key) unscaled.
func ttlSeconds(d time.Duration) int64 {
	switch d {
	case -1, -2:
		return int64(d)
	}
	return int64(d / time.Second)
}

func (c *Client) Scan(ctx context.Context, cursor uint64, match string, count int64) (uint64, []string, error) {
	keys, next, err := c.rdb.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return 0, nil, err
	}
	return next, keys, nil
}

func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	return c.rdb.LLen(ctx, key).Result()
}

func (c *Client) LPush(ctx context.Context, key, value string) (int64, error) {
	return c.rdb.LPush(ctx, key, value).Result()
}

func (c *Client) RPush(ctx context.Context, key, value string) (int64, error) {
	return c.rdb.RPush(ctx, key, value).Result()
}

func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.rdb.LRange(ctx, key, start, stop).Result()
}

func (c *Client) Native() interfaces.Native {
	return interfaces.RedisNative{Client: c.rdb}
}

// Close releases the underlying client when this Client owns it. Repeated
// calls are no-ops.
func (c *Client) Close() error {
	if c.closeClient {
		if err := c.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// Maker connects on its first Make and hands out the same client, or the
// same error, on every later call.
type Maker struct {
	mu     sync.Mutex
	done   bool
	client interfaces.KeyValueClient
	err    error

	config func() (Config, error)
	dial   func(ctx context.Context, cfg Config) (*Client, error)
}

func NewMaker() *Maker {
	return &Maker{config: ConfigFromEnv, dial: Dial}
}

func (m *Maker) Make() (interfaces.KeyValueClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		return m.client, m.err
	}
	m.done = true

	cfg, err := m.config()
	if err != nil {
		m.err = err
		return nil, err
	}

	client, err := m.dial(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to connect to key-value store",
			slog.String("addr", cfg.Addr()),
			"err", err)
		m.err = err
		return nil, err
	}
	m.client = client
	return client, nil
}

// LoadProvider is the library entry point.
func LoadProvider() any {
	return NewMaker()
}
