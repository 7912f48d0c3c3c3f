package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	qserrors "github.com/vnykmshr/queuestat/pkg/common/errors"
)

func TestEventually(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		called := false
		Eventually(t, func() bool {
			called = true
			return true
		}, 100*time.Millisecond, 10*time.Millisecond)

		if !called {
			t.Error("condition function should be called")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		var counter int32
		go func() {
			time.Sleep(50 * time.Millisecond)
			atomic.StoreInt32(&counter, 1)
		}()

		Eventually(t, func() bool {
			return atomic.LoadInt32(&counter) == 1
		}, 500*time.Millisecond, 10*time.Millisecond)
	})
}

func TestWaitForInt64(t *testing.T) {
	var value int64

	go func() {
		time.Sleep(30 * time.Millisecond)
		atomic.StoreInt64(&value, 100)
	}()

	WaitForInt64(t, &value, 100, 500*time.Millisecond)

	if atomic.LoadInt64(&value) != 100 {
		t.Errorf("value = %d, want 100", value)
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("context should have a deadline")
	}
	if time.Until(deadline) > TestTimeout {
		t.Errorf("deadline is too far in the future")
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(1500 * time.Millisecond)

	if got := clock.Now().Sub(start); got != 1500*time.Millisecond {
		t.Errorf("elapsed = %v, want 1.5s", got)
	}
}

func TestFakeStore(t *testing.T) {
	ctx := context.Background()

	t.Run("reads", func(t *testing.T) {
		store := NewFakeStore()
		store.SetHash("stats", map[string]string{"alice": "10"})
		store.SetCard("queue", 3)

		fields, err := store.HGetAll(ctx, "stats")
		if err != nil || fields["alice"] != "10" {
			t.Fatalf("HGetAll = %v, %v", fields, err)
		}
		n, err := store.SCard(ctx, "queue")
		if err != nil || n != 3 {
			t.Fatalf("SCard = %d, %v", n, err)
		}
		if n, _ := store.SCard(ctx, "missing"); n != 0 {
			t.Errorf("missing set cardinality = %d, want 0", n)
		}
		if got := store.Calls("SCARD", "queue"); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
		want := []string{"HGETALL stats", "SCARD queue", "SCARD missing"}
		if got := store.History(); len(got) != len(want) || got[0] != want[0] || got[2] != want[2] {
			t.Errorf("history = %v, want %v", got, want)
		}
	})

	t.Run("failures", func(t *testing.T) {
		store := NewFakeStore()
		boom := errors.New("boom")

		store.FailKey("queue", boom)
		if _, err := store.SCard(ctx, "queue"); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
		store.FailKey("queue", nil)
		if _, err := store.SCard(ctx, "queue"); err != nil {
			t.Fatalf("cleared key still fails: %v", err)
		}

		store.SetDown(qserrors.ErrStoreUnavailable)
		if _, err := store.HGetAll(ctx, "stats"); !errors.Is(err, qserrors.ErrStoreUnavailable) {
			t.Fatalf("err = %v, want ErrStoreUnavailable", err)
		}
	})

	t.Run("delay honors context", func(t *testing.T) {
		store := NewFakeStore()
		store.SetDelay(time.Second)

		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		if _, err := store.SCard(ctx, "queue"); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v, want deadline exceeded", err)
		}
	})
}
