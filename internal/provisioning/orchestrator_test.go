package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
)

type orchestratorConfig struct {
	url string
}

func (c orchestratorConfig) GetProvisioningOrchestratorURL() string   { return c.url }
func (c orchestratorConfig) GetProvisioningOrchestratorToken() string { return "orchestrator-token" }
func (c orchestratorConfig) GetProvisioningTimeout() time.Duration    { return 5 * time.Second }

func TestHTTPOrchestratorNormalizesTierAndAuthenticates(t *testing.T) {
	var (
		captured Request
		auth     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"success":true,"resources":{"tenant_id":"t-9"}}`))
	}))
	defer server.Close()

	orchestrator := NewHTTPOrchestrator(orchestratorConfig{url: server.URL})
	result, err := orchestrator.Provision(context.Background(), Request{ClientID: "lead-1", ClientName: "Acme", Email: "a@example.com", Tier: "professional"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if auth != "Bearer orchestrator-token" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if captured.Tier != domain.TierGrowth || captured.ClientID != "lead-1" {
		t.Fatalf("unexpected request %+v", captured)
	}
	if result.Resources["tenant_id"] != "t-9" {
		t.Fatalf("unexpected resources %v", result.Resources)
	}
}

func TestHTTPOrchestratorFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"reported failure", http.StatusOK, `{"success":false,"error":"tenant exists"}`, "tenant exists"},
		{"error status with body", http.StatusInternalServerError, `{"success":false,"error":"db down"}`, "db down"},
		{"error status without body", http.StatusBadGateway, `bad gateway`, "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewHTTPOrchestrator(orchestratorConfig{url: server.URL}).Provision(context.Background(), Request{ClientID: "lead-1"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestHTTPOrchestratorNotConfigured(t *testing.T) {
	_, err := NewHTTPOrchestrator(orchestratorConfig{}).Provision(context.Background(), Request{})
	if !errors.Is(err, ErrOrchestratorNotConfigured) {
		t.Fatalf("expected ErrOrchestratorNotConfigured, got %v", err)
	}
}
