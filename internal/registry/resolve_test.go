package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calder-systems/pipsnap/internal/pip"
)

func TestResolve(t *testing.T) {
	srv := fakeIndex(t, map[string]string{
		"requests": "2.31.0",
		"flask":    "3.0.0",
		"pytest":   "8.0.0",
	})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	packages := []*pip.Package{
		{Name: "requests", Version: "2.26.0"},
		{Name: "flask", Version: "2.0.0"},
		{Name: "pytest", Version: "8.0.0"},
	}

	results := Resolve(context.Background(), client, packages, 2)

	if len(results) != len(packages) {
		t.Fatalf("Resolve() returned %d results, want %d", len(results), len(packages))
	}

	for i, r := range results {
		if r.Err != nil {
			t.Errorf("result %d (%s) failed: %v", i, r.Package.Name, r.Err)
		}
		if r.Package != packages[i] {
			t.Errorf("result %d is not in input order", i)
		}
	}

	if packages[0].Latest != "2.31.0" {
		t.Errorf("requests Latest = %q, want 2.31.0", packages[0].Latest)
	}
	if packages[1].Description == "" {
		t.Error("flask Description not filled in")
	}
}

func TestResolveFailureIsolation(t *testing.T) {
	srv := fakeIndex(t, map[string]string{"requests": "2.31.0"})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	packages := []*pip.Package{
		{Name: "requests", Version: "2.26.0"},
		{Name: "no-such-package", Version: "1.0.0"},
	}

	results := Resolve(context.Background(), client, packages, 4)

	if len(results) != 2 {
		t.Fatalf("Resolve() returned %d results, want 2", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("requests should resolve despite sibling failure: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("no-such-package should fail")
	}

	// The failed package is left untouched.
	if packages[1].Latest != "" {
		t.Errorf("failed package Latest = %q, want empty", packages[1].Latest)
	}

	failed := Failed(results)
	if len(failed) != 1 || failed[0].Package.Name != "no-such-package" {
		t.Errorf("Failed() = %v, want only no-such-package", failed)
	}
}

func TestResolveConcurrencyBound(t *testing.T) {
	const limit = 3

	var inFlight, peak int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&inFlight, 1)
		defer atomic.AddInt64(&inFlight, -1)

		// Track the high-water mark of concurrent requests.
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)

		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
		fmt.Fprintf(w, `{"info": {"version": "1.0.0", "summary": %q}}`, name)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	var packages []*pip.Package
	for i := 0; i < 12; i++ {
		packages = append(packages, &pip.Package{Name: fmt.Sprintf("pkg-%d", i), Version: "0.1.0"})
	}

	results := Resolve(context.Background(), client, packages, limit)

	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("lookup for %s failed: %v", r.Package.Name, r.Err)
		}
	}

	if p := atomic.LoadInt64(&peak); p > limit {
		t.Errorf("peak concurrent lookups = %d, want <= %d", p, limit)
	}
}

func TestResolveCancelled(t *testing.T) {
	srv := fakeIndex(t, map[string]string{"requests": "2.31.0"})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	packages := []*pip.Package{
		{Name: "requests", Version: "2.26.0"},
		{Name: "flask", Version: "2.0.0"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Resolve(ctx, client, packages, 2)

	// One result per input, even when nothing was dispatched.
	if len(results) != len(packages) {
		t.Fatalf("Resolve() returned %d results, want %d", len(results), len(packages))
	}
	for i, r := range results {
		if r.Err == nil {
			t.Errorf("result %d should carry the context error", i)
		}
	}
}

func TestResolveDefaultLimit(t *testing.T) {
	srv := fakeIndex(t, map[string]string{"requests": "2.31.0"})
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	packages := []*pip.Package{{Name: "requests", Version: "2.26.0"}}

	// A non-positive limit falls back to DefaultConcurrency.
	results := Resolve(context.Background(), client, packages, 0)
	if results[0].Err != nil {
		t.Errorf("Resolve() with zero limit failed: %v", results[0].Err)
	}
}
