package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSource struct {
	calls   atomic.Int64
	blocked bool
	err     error

	// release, when set, blocks every fetch until closed.
	release chan struct{}
}

func (s *countingSource) BlockedStatus(ctx context.Context, userID string) (bool, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	return s.blocked, s.err
}

func TestResolverCachesWithinTTL(t *testing.T) {
	src := &countingSource{blocked: false}
	r := NewBlockStatusResolver(src, time.Minute)

	for i := 0; i < 5; i++ {
		got := r.Resolve(context.Background(), "u1")
		if v, ok := got.Value(); !ok || v {
			t.Fatalf("Resolve #%d = %+v, want Known(false)", i, got)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("source called %d times, want 1", n)
	}
}

func TestResolverExpiresAfterTTL(t *testing.T) {
	src := &countingSource{blocked: true}
	r := NewBlockStatusResolver(src, time.Minute)

	current := time.Now()
	r.now = func() time.Time { return current }

	r.Resolve(context.Background(), "u1")
	current = current.Add(30 * time.Second)
	r.Resolve(context.Background(), "u1")
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("source called %d times before expiry, want 1", n)
	}

	current = current.Add(31 * time.Second)
	got := r.Resolve(context.Background(), "u1")
	if v, ok := got.Value(); !ok || !v {
		t.Fatalf("Resolve after expiry = %+v, want Known(true)", got)
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("source called %d times after expiry, want 2", n)
	}
}

func TestResolverSingleFlight(t *testing.T) {
	src := &countingSource{blocked: true, release: make(chan struct{})}
	r := NewBlockStatusResolver(src, time.Minute)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, ok := r.Resolve(context.Background(), "u1").Value()
			results[i] = ok && v
		}(i)
	}

	// Let every goroutine pile up behind the one in-flight fetch.
	deadline := time.After(2 * time.Second)
	for src.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("fetch never started")
		case <-time.After(time.Millisecond):
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	if n := src.calls.Load(); n != 1 {
		t.Errorf("source called %d times for %d concurrent callers, want 1", n, callers)
	}
	for i, got := range results {
		if !got {
			t.Errorf("caller %d did not observe Known(true)", i)
		}
	}
}

func TestResolverFailureDegradesToLoading(t *testing.T) {
	src := &countingSource{err: errors.New("backend down")}
	r := NewBlockStatusResolver(src, time.Minute)

	got := r.Resolve(context.Background(), "u1")
	if !got.IsLoading() {
		t.Fatalf("Resolve on failure = %+v, want Loading", got)
	}

	// Failures are not cached: the next call retries the source.
	src.err = nil
	src.blocked = true
	got = r.Resolve(context.Background(), "u1")
	if v, ok := got.Value(); !ok || !v {
		t.Errorf("Resolve after recovery = %+v, want Known(true)", got)
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("source called %d times, want 2", n)
	}
}

func TestResolverMarkBlocked(t *testing.T) {
	src := &countingSource{blocked: false}
	r := NewBlockStatusResolver(src, time.Minute)

	r.MarkBlocked("u1")
	got := r.Resolve(context.Background(), "u1")
	if v, ok := got.Value(); !ok || !v {
		t.Fatalf("Resolve after MarkBlocked = %+v, want Known(true)", got)
	}
	if n := src.calls.Load(); n != 0 {
		t.Errorf("source called %d times, want 0", n)
	}
}

func TestResolverInvalidate(t *testing.T) {
	src := &countingSource{blocked: false}
	r := NewBlockStatusResolver(src, time.Minute)

	r.Resolve(context.Background(), "u1")
	src.blocked = true
	r.Invalidate("u1")

	got := r.Resolve(context.Background(), "u1")
	if v, ok := got.Value(); !ok || !v {
		t.Errorf("Resolve after Invalidate = %+v, want fresh Known(true)", got)
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("source called %d times, want 2", n)
	}
}
