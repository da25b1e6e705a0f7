package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Fatal("empty cache hit")
	}

	if err := c.Set(ctx, "a", []byte("alpha"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "b", []byte("beta"), 0); err != nil {
		t.Fatal(err)
	}

	got, hit, err := c.Get(ctx, "a")
	if err != nil || !hit {
		t.Fatalf("Get(a) = %v, %v", hit, err)
	}
	if diff := cmp.Diff([]byte("alpha"), got); diff != "" {
		t.Errorf("Get(a) (-want +got):\n%s", diff)
	}

	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("expired entry hit")
	}
	if _, hit, _ := c.Get(ctx, "b"); !hit {
		t.Error("entry without ttl expired")
	}

	if err := c.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "b"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("deleted entry hit")
	}
}

func TestFileCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get = %v, %v; want clean miss", hit, err)
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Errorf("corrupt entry not removed: %v", err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n, 3; got != want {
		t.Errorf("Clear() = %d, want %d", got, want)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry survived Clear")
	}
}

func TestHash(t *testing.T) {
	if Hash([]byte("hello")) != Hash([]byte("hello")) {
		t.Error("Hash is not deterministic")
	}
	if Hash([]byte("hello")) == Hash([]byte("world")) {
		t.Error("different inputs share a hash")
	}
	if got, want := len(Hash(nil)), 64; got != want {
		t.Errorf("len(Hash) = %d, want %d", got, want)
	}
}

func TestPlacementKey(t *testing.T) {
	k := NewDefaultKeyer()
	base := PlacementKeyOpts{Epsilon: 10, MaxDuration: time.Minute, Seed: 1}

	tests := []struct {
		name string
		hash string
		opts PlacementKeyOpts
		same bool
	}{
		{"identical", "h1", base, true},
		{"other design", "h2", base, false},
		{"other epsilon", "h1", PlacementKeyOpts{Epsilon: 5, MaxDuration: time.Minute, Seed: 1}, false},
		{"other seed", "h1", PlacementKeyOpts{Epsilon: 10, MaxDuration: time.Minute, Seed: 2}, false},
		{"other schedule", "h1", PlacementKeyOpts{Epsilon: 10, MaxDuration: time.Minute, Seed: 1, Schedule: [4]float64{1, 0.5, 1, 10}}, false},
	}
	want := k.PlacementKey("h1", base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := k.PlacementKey(tt.hash, tt.opts)
			if (got == want) != tt.same {
				t.Errorf("PlacementKey(%q, %+v) = %s; same as base = %v, want %v", tt.hash, tt.opts, got, got == want, tt.same)
			}
		})
	}
}

func TestScopedKeyer(t *testing.T) {
	opts := PlacementKeyOpts{Epsilon: 10}
	inner := NewDefaultKeyer().PlacementKey("h", opts)

	if got, want := NewScopedKeyer(NewDefaultKeyer(), "api:").PlacementKey("h", opts), "api:"+inner; got != want {
		t.Errorf("scoped key = %s, want %s", got, want)
	}
	if got, want := NewScopedKeyer(nil, "cli:").PlacementKey("h", opts), "cli:"+inner; got != want {
		t.Errorf("nil inner key = %s, want %s", got, want)
	}
}

var errFlaky = errors.New("flaky")

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	errFatal := errors.New("fatal")

	tests := []struct {
		name      string
		fails     int
		fail      error
		wantErr   error
		wantCalls int
	}{
		{"success", 0, nil, nil, 1},
		{"non-retryable", 5, errFatal, errFatal, 1},
		{"recovers", 1, Retryable(errFlaky), nil, 2},
		{"exhausted", 5, Retryable(errFlaky), errFlaky, retryAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.fails {
					return tt.fail
				}
				return nil
			})
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error { return Retryable(errFlaky) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) != nil")
	}
	err := Retryable(errFlaky)
	if !IsRetryable(err) || err.Error() != errFlaky.Error() {
		t.Errorf("Retryable(errFlaky) = %v", err)
	}
	if IsRetryable(errFlaky) {
		t.Error("plain error reported retryable")
	}
}
