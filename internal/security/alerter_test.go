package security

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestAlerter(t *testing.T) (*AuditAlerter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	alerter := NewAuditAlerter(client, "test:alerts")
	alerter.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return alerter, mr
}

func TestAuditAlerterTriggersOnceAtThreshold(t *testing.T) {
	alerter, _ := newTestAlerter(t)
	ctx := context.Background()

	triggered := 0
	for i := 1; i <= 12; i++ {
		result, err := alerter.Observe(ctx, "login", "fail", "203.0.113.7")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if result.Count != int64(i) {
			t.Fatalf("expected count %d, got %d", i, result.Count)
		}
		if result.Triggered {
			triggered++
			if i != 10 {
				t.Fatalf("expected trigger at 10, got %d", i)
			}
		}
	}
	if triggered != 1 {
		t.Fatalf("expected one trigger, got %d", triggered)
	}
}

func TestAuditAlerterSeparatesIPs(t *testing.T) {
	alerter, _ := newTestAlerter(t)
	ctx := context.Background()
	for i := 0; i < 9; i++ {
		if _, err := alerter.Observe(ctx, "login", "fail", "203.0.113.7"); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}
	result, err := alerter.Observe(ctx, "login", "fail", "198.51.100.1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Count != 1 || result.Triggered {
		t.Fatalf("expected independent counter, got %+v", result)
	}
}

func TestAuditAlerterIgnoresUnknownRule(t *testing.T) {
	alerter, mr := newTestAlerter(t)
	for _, tc := range [][2]string{{"login", "success"}, {"custom", "fail"}} {
		result, err := alerter.Observe(context.Background(), tc[0], tc[1], "127.0.0.1")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if result.Triggered || result.Count != 0 {
			t.Fatalf("unexpected result for %v: %+v", tc, result)
		}
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no counters, got %v", keys)
	}
}

func TestAuditAlerterKeyLayout(t *testing.T) {
	alerter, mr := newTestAlerter(t)
	if _, err := alerter.Observe(context.Background(), "authorize", "fail", "::1"); err != nil {
		t.Fatalf("observe: %v", err)
	}
	slot := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli() / (5 * time.Minute).Milliseconds()
	want := "test:alerts:authorize:fail:__1:" + strconv.FormatInt(slot, 10)
	if !mr.Exists(want) {
		t.Fatalf("expected key %q, have %v", want, mr.Keys())
	}
}

func TestAuditAlerterReportsRedisErrors(t *testing.T) {
	alerter, mr := newTestAlerter(t)
	mr.Close()
	if _, err := alerter.Observe(context.Background(), "login", "fail", "127.0.0.1"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestNilAlerter(t *testing.T) {
	var alerter *AuditAlerter
	if result, err := alerter.Observe(context.Background(), "login", "fail", "x"); err != nil || result.Triggered {
		t.Fatalf("nil alerter should be a no-op: %+v %v", result, err)
	}
	if NewRedisAuditAlerter("", "", "") != nil {
		t.Fatalf("expected nil alerter without addr")
	}
	if NewAuditAlerter(nil, "") != nil {
		t.Fatalf("expected nil alerter without client")
	}
}
