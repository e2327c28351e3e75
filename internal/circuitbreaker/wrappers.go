package circuitbreaker

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HTTPWrapper wraps an http.Client with a circuit breaker. 5xx responses
// count as breaker failures; 4xx do not trip it.
type HTTPWrapper struct {
	client *http.Client
	cb     *CircuitBreaker
}

// NewHTTPWrapper creates an HTTP wrapper with breaker defaults.
func NewHTTPWrapper(client *http.Client, name, service string, logger *zap.Logger) *HTTPWrapper {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPWrapper{
		client: client,
		cb:     New(name, DefaultConfig(), logger.With(zap.String("service", service))),
	}
}

// Do executes a request through the breaker. When the breaker classifies a
// 5xx as failure the underlying response is still returned to the caller.
func (hw *HTTPWrapper) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := hw.cb.Execute(req.Context(), func() error {
		var doErr error
		resp, doErr = hw.client.Do(req)
		if doErr != nil {
			return doErr
		}
		if resp.StatusCode >= 500 {
			return &httpStatusError{code: resp.StatusCode}
		}
		return nil
	})

	if _, ok := err.(*httpStatusError); ok {
		return resp, nil
	}
	return resp, err
}

// State exposes the breaker state for health checks.
func (hw *HTTPWrapper) State() State { return hw.cb.State() }

type httpStatusError struct{ code int }

func (e *httpStatusError) Error() string { return http.StatusText(e.code) }

// RedisWrapper guards the Redis commands the session layer uses.
type RedisWrapper struct {
	client *redis.Client
	cb     *CircuitBreaker
}

// NewRedisWrapper creates a Redis wrapper with breaker defaults.
func NewRedisWrapper(client *redis.Client, logger *zap.Logger) *RedisWrapper {
	return &RedisWrapper{
		client: client,
		cb:     New("redis", DefaultConfig(), logger),
	}
}

func (rw *RedisWrapper) Ping(ctx context.Context) *redis.StatusCmd {
	var cmd *redis.StatusCmd
	err := rw.cb.Execute(ctx, func() error {
		cmd = rw.client.Ping(ctx)
		return cmd.Err()
	})
	if cmd == nil {
		cmd = redis.NewStatusCmd(ctx)
		cmd.SetErr(err)
	}
	return cmd
}

func (rw *RedisWrapper) Get(ctx context.Context, key string) *redis.StringCmd {
	var cmd *redis.StringCmd
	err := rw.cb.Execute(ctx, func() error {
		cmd = rw.client.Get(ctx, key)
		if err := cmd.Err(); err != nil && err != redis.Nil {
			return err
		}
		return nil
	})
	if cmd == nil {
		cmd = redis.NewStringCmd(ctx)
		cmd.SetErr(err)
	}
	return cmd
}

func (rw *RedisWrapper) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	var cmd *redis.StatusCmd
	err := rw.cb.Execute(ctx, func() error {
		cmd = rw.client.Set(ctx, key, value, expiration)
		return cmd.Err()
	})
	if cmd == nil {
		cmd = redis.NewStatusCmd(ctx)
		cmd.SetErr(err)
	}
	return cmd
}

func (rw *RedisWrapper) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var cmd *redis.IntCmd
	err := rw.cb.Execute(ctx, func() error {
		cmd = rw.client.Del(ctx, keys...)
		return cmd.Err()
	})
	if cmd == nil {
		cmd = redis.NewIntCmd(ctx)
		cmd.SetErr(err)
	}
	return cmd
}

func (rw *RedisWrapper) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	var cmd *redis.ScanCmd
	err := rw.cb.Execute(ctx, func() error {
		cmd = rw.client.Scan(ctx, cursor, match, count)
		return cmd.Err()
	})
	if cmd == nil {
		cmd = redis.NewScanCmd(ctx, nil)
		cmd.SetErr(err)
	}
	return cmd
}

// Close closes the underlying client.
func (rw *RedisWrapper) Close() error { return rw.client.Close() }

// State exposes the breaker state for health checks.
func (rw *RedisWrapper) State() State { return rw.cb.State() }
