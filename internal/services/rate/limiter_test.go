package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redrepo "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/repo/redis"
)

func newTestLimiter(t *testing.T, limits Limits) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLimiter(redrepo.NewRateRepo(client), limits, zap.NewNop()), mr
}

func TestAllowWithinLimits(t *testing.T) {
	limiter, _ := newTestLimiter(t, Limits{ActionsPerMinute: 10, ActionsPer10Sec: 5})

	for i := 0; i < 5; i++ {
		if d := limiter.Allow(context.Background(), -1); !d.Allowed {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
}

func TestBurstLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, Limits{ActionsPerMinute: 100, ActionsPer10Sec: 3})

	for i := 0; i < 3; i++ {
		if d := limiter.Allow(context.Background(), -1); !d.Allowed {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}

	d := limiter.Allow(context.Background(), -1)
	if d.Allowed {
		t.Fatalf("expected the burst window to reject the 4th request")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > 10*time.Second {
		t.Fatalf("unexpected retry-after: %v", d.RetryAfter)
	}
}

func TestSustainedLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, Limits{ActionsPerMinute: 4, ActionsPer10Sec: 100})

	for i := 0; i < 4; i++ {
		if d := limiter.Allow(context.Background(), -1); !d.Allowed {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}

	if d := limiter.Allow(context.Background(), -1); d.Allowed {
		t.Fatalf("expected the minute window to reject the 5th request")
	}
}

func TestPeekDoesNotConsumeSlot(t *testing.T) {
	limiter, _ := newTestLimiter(t, Limits{ActionsPerMinute: 100, ActionsPer10Sec: 2})

	if d := limiter.Peek(context.Background(), -1); !d.Allowed {
		t.Fatalf("peek on an empty window must allow")
	}

	for i := 0; i < 2; i++ {
		if d := limiter.Allow(context.Background(), -1); !d.Allowed {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}

	d := limiter.Peek(context.Background(), -1)
	if d.Allowed {
		t.Fatalf("expected peek to report the saturated window")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > 10*time.Second {
		t.Fatalf("unexpected retry-after: %v", d.RetryAfter)
	}
}

func TestRejectedRequestsDoNotExtendWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t, Limits{ActionsPerMinute: 100, ActionsPer10Sec: 2})

	for i := 0; i < 2; i++ {
		if d := limiter.Allow(context.Background(), -1); !d.Allowed {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	for i := 0; i < 5; i++ {
		if d := limiter.Allow(context.Background(), -1); d.Allowed {
			t.Fatalf("rejected request %d unexpectedly admitted", i)
		}
	}

	count, err := mr.Get("rate:enforce:10s:-1")
	if err != nil {
		t.Fatalf("read burst counter: %v", err)
	}
	if count != "2" {
		t.Fatalf("rejections must not increment the counter, got %s", count)
	}
}

func TestWindowsAreScopedPerGroup(t *testing.T) {
	limiter, _ := newTestLimiter(t, Limits{ActionsPerMinute: 100, ActionsPer10Sec: 1})

	if d := limiter.Allow(context.Background(), -1); !d.Allowed {
		t.Fatalf("first request for group -1 unexpectedly limited")
	}
	if d := limiter.Allow(context.Background(), -1); d.Allowed {
		t.Fatalf("expected group -1 to be limited")
	}
	if d := limiter.Allow(context.Background(), -2); !d.Allowed {
		t.Fatalf("group -2 must have its own window")
	}
}

func TestWindowExpiryResetsCounter(t *testing.T) {
	limiter, mr := newTestLimiter(t, Limits{ActionsPerMinute: 100, ActionsPer10Sec: 1})

	if d := limiter.Allow(context.Background(), -1); !d.Allowed {
		t.Fatalf("first request unexpectedly limited")
	}
	if d := limiter.Allow(context.Background(), -1); d.Allowed {
		t.Fatalf("expected the burst window to saturate")
	}

	mr.FastForward(11 * time.Second)

	if d := limiter.Allow(context.Background(), -1); !d.Allowed {
		t.Fatalf("expected a fresh window after expiry")
	}
}

func TestFailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, Limits{ActionsPerMinute: 1, ActionsPer10Sec: 1})
	mr.Close()

	if d := limiter.Allow(context.Background(), -1); !d.Allowed {
		t.Fatalf("limiter must fail open when redis is unreachable")
	}
}
