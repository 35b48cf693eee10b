package registry_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/momentics/hioload-reactor/registry"
)

func TestPickRoundRobinsInRegistrationOrder(t *testing.T) {
	r := registry.New()
	r.Register("echo", "10.0.0.1:9000")
	r.Register("echo", "10.0.0.2:9000")
	r.Register("echo", "10.0.0.3:9000")

	want := []string{"10.0.0.1:9000", "10.0.0.2:9000", "10.0.0.3:9000", "10.0.0.1:9000"}
	for i, w := range want {
		got, err := r.Pick("echo")
		if err != nil {
			t.Fatalf("pick %d: %v", i, err)
		}
		if got != w {
			t.Fatalf("pick %d: expected %s, got %s", i, w, got)
		}
	}
}

func TestPickUnknownServiceReturnsErrNotFound(t *testing.T) {
	r := registry.New()
	if _, err := r.Pick("missing"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPickEmptyServiceReturnsErrEmpty(t *testing.T) {
	r := registry.New()
	r.Register("echo", "a")
	r.Deregister("echo", "a")
	if _, err := r.Pick("echo"); !errors.Is(err, registry.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestConcurrentPickDistributesEvenly(t *testing.T) {
	r := registry.New()
	r.Register("echo", "a")
	r.Register("echo", "b")

	const n = 1000
	counts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backend, err := r.Pick("echo")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			counts[backend]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counts["a"]+counts["b"] != n {
		t.Fatalf("expected %d total picks, got %d", n, counts["a"]+counts["b"])
	}
	if counts["a"] != n/2 || counts["b"] != n/2 {
		t.Fatalf("expected even 50/50 split, got a=%d b=%d", counts["a"], counts["b"])
	}
}

func TestRemoveDeletesService(t *testing.T) {
	r := registry.New()
	r.Register("echo", "a")
	if err := r.Remove("echo"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := r.Remove("echo"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double remove, got %v", err)
	}
}
