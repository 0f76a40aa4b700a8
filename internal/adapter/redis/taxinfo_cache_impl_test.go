package redis

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/mst-crawler/internal/entity"
)

// memoryHook answers GET, SETEX and PING from a map so no server is needed.
type memoryHook struct {
	values map[string][]byte
	ttls   map[string]any
}

func (h *memoryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("unexpected dial to %s", addr)
	}
}

func (h *memoryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		args := cmd.Args()
		switch strings.ToLower(cmd.Name()) {
		case "setex":
			key := args[1].(string)
			h.ttls[key] = args[2]
			switch v := args[3].(type) {
			case []byte:
				h.values[key] = v
			case string:
				h.values[key] = []byte(v)
			}
			cmd.(*redis.StatusCmd).SetVal("OK")
		case "get":
			v, ok := h.values[args[1].(string)]
			if !ok {
				cmd.SetErr(redis.Nil)
				return redis.Nil
			}
			cmd.(*redis.StringCmd).SetVal(string(v))
		case "ping":
			cmd.(*redis.StatusCmd).SetVal("PONG")
		default:
			err := fmt.Errorf("unexpected command %s", cmd.Name())
			cmd.SetErr(err)
			return err
		}
		return nil
	}
}

func (h *memoryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newTestCache(t *testing.T) (*TaxInfoCacheImpl, *memoryHook) {
	t.Helper()
	hook := &memoryHook{values: map[string][]byte{}, ttls: map[string]any{}}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(hook)
	t.Cleanup(func() { client.Close() })
	return NewTaxInfoCache(client), hook
}

func TestTaxInfoCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, hook := newTestCache(t)

	if _, found, err := cache.Get(ctx, "Công ty ABC"); err != nil || found {
		t.Fatalf("empty cache: found=%v err=%v", found, err)
	}

	info := &entity.TaxInfo{TaxID: "0123456789", CompanyName: "Công ty ABC", Phone: "0241112222"}
	if err := cache.Set(ctx, "Công ty ABC", info, 2*time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(hook.values) != 1 {
		t.Fatalf("expected one stored key, got %d", len(hook.values))
	}
	if ttl := hook.ttls[cacheKey("Công ty ABC")]; fmt.Sprint(ttl) != "7200" {
		t.Errorf("ttl = %v, expected 7200 seconds", ttl)
	}

	got, found, err := cache.Get(ctx, "  công ty  abc ")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if *got != *info {
		t.Errorf("got %+v, expected %+v", got, info)
	}

	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestTaxInfoCacheSkipsNilAndZeroTTL(t *testing.T) {
	ctx := context.Background()
	cache, hook := newTestCache(t)

	if err := cache.Set(ctx, "kw", nil, time.Hour); err != nil {
		t.Fatalf("Set nil: %v", err)
	}
	if err := cache.Set(ctx, "kw", &entity.TaxInfo{TaxID: "0123456789"}, 0); err != nil {
		t.Fatalf("Set zero ttl: %v", err)
	}
	if len(hook.values) != 0 {
		t.Errorf("expected nothing stored, got %d keys", len(hook.values))
	}
}

func TestCacheKeyNormalizesKeyword(t *testing.T) {
	a := cacheKey("Công ty  ABC")
	b := cacheKey("  công ty abc ")
	if a != b {
		t.Errorf("expected equal keys for equivalent keywords, got %s and %s", a, b)
	}
	if !strings.HasPrefix(a, taxInfoPrefix) {
		t.Errorf("key %s lacks prefix", a)
	}
	if cacheKey("Công ty XYZ") == a {
		t.Error("different keywords share a key")
	}
}
