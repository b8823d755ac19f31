package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func TestTTL_GetSet(t *testing.T) {
	c := NewTTL(time.Minute)
	c.Set("people", 3, t0)

	tests := []struct {
		name   string
		now    time.Time
		wantOK bool
	}{
		{"same instant", t0, true},
		{"just before expiry", t0.Add(59 * time.Second), true},
		{"at expiry", t0.Add(time.Minute), false},
		{"long after", t0.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := c.Get("people", tt.now)
			if ok != tt.wantOK {
				t.Fatalf("Get() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && v.(int) != 3 {
				t.Errorf("Get() = %v, want 3", v)
			}
		})
	}
}

func TestTTL_InvalidateAndPurge(t *testing.T) {
	c := NewTTL(time.Minute)
	c.Set("a", 1, t0)
	c.Set("b", 2, t0)

	c.Invalidate("a")
	if _, ok := c.Get("a", t0); ok {
		t.Error("Get(a) after Invalidate should miss")
	}
	if _, ok := c.Get("b", t0); !ok {
		t.Error("Get(b) should still hit")
	}

	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d, want 0", c.Size())
	}
}

func TestLoad_CachesUntilExpiry(t *testing.T) {
	c := NewTTL(time.Minute)
	calls := 0
	fetch := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"tx-1", "tx-2"}, nil
	}

	for _, now := range []time.Time{t0, t0.Add(30 * time.Second), t0.Add(2 * time.Minute)} {
		got, err := Load(context.Background(), c, "transactions", now, fetch)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("Load() = %v, want 2 items", got)
		}
	}

	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
}

func TestLoad_ErrorNotCached(t *testing.T) {
	c := NewTTL(time.Minute)
	boom := errors.New("notion unavailable")

	_, err := Load(context.Background(), c, "payees", t0, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v, want %v", err, boom)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want failed load not stored", c.Size())
	}

	got, err := Load(context.Background(), c, "payees", t0, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Errorf("Load() = (%d, %v), want (7, nil)", got, err)
	}
}

func TestLoad_ConcurrentCallersShareFetch(t *testing.T) {
	c := NewTTL(time.Minute)
	var calls int32
	release := make(chan struct{})

	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "snapshot", nil
	}

	const callers = 8
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			if v, err := Load(context.Background(), c, "all", t0, fetch); err != nil || v != "snapshot" {
				t.Errorf("Load() = (%q, %v)", v, err)
			}
		}()
	}

	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	// Late arrivals may miss the in-flight call but then hit the stored value.
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch called %d times, want 1", n)
	}
}
