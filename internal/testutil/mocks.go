package testutil

import (
	"context"
	"sync"
	"time"

	qserrors "github.com/vnykmshr/queuestat/pkg/common/errors"
)

// MockClock is a manually advanced clock so cycle durations are
// deterministic in tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// FakeStore is an in-memory store with programmable failures. It satisfies
// the sampler's store dependency.
type FakeStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	sets    map[string]int64
	errs    map[string]error
	down    error
	delay   time.Duration
	calls   map[string]int
	onCall  func(op, key string)
	history []string
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]int64),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// SetHash replaces the hash stored at key.
func (f *FakeStore) SetHash(key string, fields map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	f.hashes[key] = copied
}

// SetCard sets the cardinality reported for the set at key.
func (f *FakeStore) SetCard(key string, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets[key] = n
}

// FailKey makes every call for key return err. A nil err clears it.
func (f *FakeStore) FailKey(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, key)
		return
	}
	f.errs[key] = err
}

// SetDown makes every call fail with err, as if the server were
// unreachable. A nil err brings the store back.
func (f *FakeStore) SetDown(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = err
}

// SetDelay makes each call block for d or until its context is done.
func (f *FakeStore) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// OnCall registers a hook run at the start of every call.
func (f *FakeStore) OnCall(fn func(op, key string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCall = fn
}

// Calls returns how many times op was called for key.
func (f *FakeStore) Calls(op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op+" "+key]
}

// History returns every call as "OP key" in call order.
func (f *FakeStore) History() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.history...)
}

// HGetAll implements the store read contract.
func (f *FakeStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := f.begin(ctx, "HGETALL", key); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fields := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		fields[k] = v
	}
	return fields, nil
}

// SCard implements the store read contract.
func (f *FakeStore) SCard(ctx context.Context, key string) (int64, error) {
	if err := f.begin(ctx, "SCARD", key); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[key], nil
}

func (f *FakeStore) begin(ctx context.Context, op, key string) error {
	f.mu.Lock()
	f.calls[op+" "+key]++
	f.history = append(f.history, op+" "+key)
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(op, key)
	}

	f.mu.Lock()
	delay, down, keyErr := f.delay, f.down, f.errs[key]
	f.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return qserrors.NewOperationError("store", op, ctx.Err()).WithContext("key " + key)
		}
	}

	if down != nil {
		return qserrors.NewOperationError("store", op, down).WithContext("key " + key)
	}
	if keyErr != nil {
		return qserrors.NewOperationError("store", op, keyErr).WithContext("key " + key)
	}
	return nil
}
