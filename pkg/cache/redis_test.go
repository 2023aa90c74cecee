package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// memoryHook 在进程内应答 GET/SET/DEL，不建立网络连接
type memoryHook struct {
	data    map[string]string
	expires map[string]string
	failGet error
}

func (h *memoryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial not expected")
	}
}

func (h *memoryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *memoryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		args := cmd.Args()
		switch cmd.Name() {
		case "get":
			if h.failGet != nil {
				cmd.SetErr(h.failGet)
				return h.failGet
			}
			v, ok := h.data[fmt.Sprint(args[1])]
			if !ok {
				cmd.SetErr(redis.Nil)
				return redis.Nil
			}
			cmd.(*redis.StringCmd).SetVal(v)
			return nil
		case "set":
			key := fmt.Sprint(args[1])
			h.data[key] = fmt.Sprint(args[2])
			if len(args) >= 5 {
				h.expires[key] = fmt.Sprint(args[3], " ", args[4])
			}
			cmd.(*redis.StatusCmd).SetVal("OK")
			return nil
		default:
			return next(ctx, cmd)
		}
	}
}

func newTestCache(t *testing.T) (*RedisCache, *memoryHook) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	hook := &memoryHook{data: map[string]string{}, expires: map[string]string{}}
	client.AddHook(hook)
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client), hook
}

func TestGetMissIsNotAnError(t *testing.T) {
	rc, _ := newTestCache(t)
	v, ok, err := rc.Get(context.Background(), "rt:run:none")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)
}

func TestSetThenGet(t *testing.T) {
	ctx := context.Background()
	rc, hook := newTestCache(t)

	require.NoError(t, rc.Set(ctx, "rt:run:AAPL:e1:0:1:5", "3", time.Minute))
	require.Equal(t, "ex 60", hook.expires["rt:run:AAPL:e1:0:1:5"])

	v, ok, err := rc.Get(ctx, "rt:run:AAPL:e1:0:1:5")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "3", v)
	require.Same(t, rc.GetClient(), rc.client)
}

func TestGetPropagatesFailures(t *testing.T) {
	rc, hook := newTestCache(t)
	hook.failGet = errors.New("connection reset")

	_, ok, err := rc.Get(context.Background(), "k")
	require.False(t, ok)
	require.EqualError(t, err, "connection reset")
}
