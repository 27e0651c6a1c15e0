package qualification

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

func TestHTTPTriggerPostsWithInternalSecret(t *testing.T) {
	var (
		mu      sync.Mutex
		paths   []string
		secrets []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		secrets = append(secrets, r.Header.Get(httpkit.HeaderInternalSecret))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	trigger := NewHTTPTrigger(internalConfig{baseURL: server.URL + "/"}, logger.NewWithWriter("test", io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	if err := trigger.TriggerQualification(ctx, "lead-1"); err != nil {
		t.Fatalf("trigger qualification: %v", err)
	}
	// The call is detached from the caller's context.
	cancel()
	if err := trigger.TriggerProposal(context.Background(), "lead-1"); err != nil {
		t.Fatalf("trigger proposal: %v", err)
	}
	trigger.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 {
		t.Fatalf("expected two calls, got %v", paths)
	}
	want := map[string]bool{
		"POST /api/v1/leads/lead-1/qualify":  true,
		"POST /api/v1/leads/lead-1/proposal": true,
	}
	for i, path := range paths {
		if !want[path] {
			t.Fatalf("unexpected call %q", path)
		}
		if secrets[i] != "internal-secret" {
			t.Fatalf("expected internal secret header, got %q", secrets[i])
		}
	}
}

func TestHTTPTriggerRequiresBaseURL(t *testing.T) {
	trigger := NewHTTPTrigger(internalConfig{}, logger.NewWithWriter("test", io.Discard))
	if err := trigger.TriggerQualification(context.Background(), "lead-1"); err == nil {
		t.Fatal("expected error without a base url")
	}
}
