package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/resilience"
)

var ErrOrchestratorNotConfigured = errors.New("provisioning orchestrator not configured")

const defaultProvisionTimeout = 2 * time.Minute

// Request is sent to the orchestrator for one tenant.
type Request struct {
	ClientID   string      `json:"client_id"`
	ClientName string      `json:"client_name"`
	Email      string      `json:"email"`
	Tier       domain.Tier `json:"tier"`
}

// Result is the orchestrator's verdict.
type Result struct {
	Success   bool                   `json:"success"`
	Resources map[string]interface{} `json:"resources,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Orchestrator creates the tenant resources for an approved lead.
type Orchestrator interface {
	Provision(ctx context.Context, req Request) (Result, error)
}

// HTTPOrchestrator calls the external orchestrator over HTTP behind a breaker.
type HTTPOrchestrator struct {
	url        string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

func NewHTTPOrchestrator(cfg config.ProvisioningConfig) *HTTPOrchestrator {
	timeout := cfg.GetProvisioningTimeout()
	if timeout <= 0 {
		timeout = defaultProvisionTimeout
	}
	return &HTTPOrchestrator{
		url:        strings.TrimSpace(cfg.GetProvisioningOrchestratorURL()),
		token:      cfg.GetProvisioningOrchestratorToken(),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    resilience.NewBreaker("provisioning-orchestrator"),
	}
}

var _ Orchestrator = (*HTTPOrchestrator)(nil)

func (o *HTTPOrchestrator) Provision(ctx context.Context, req Request) (Result, error) {
	if o.url == "" {
		return Result{}, ErrOrchestratorNotConfigured
	}
	req.Tier = domain.NormalizeTier(string(req.Tier))

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode provisioning request: %w", err)
	}

	var result Result
	err = o.breaker.Do(func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if o.token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+o.token)
		}

		resp, err := o.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusBadRequest {
			// The orchestrator reports failures in the body when it can.
			if json.Unmarshal(raw, &result) == nil && result.Error != "" {
				return errors.New(result.Error)
			}
			return fmt.Errorf("orchestrator returned status %d", resp.StatusCode)
		}
		return json.Unmarshal(raw, &result)
	})
	if err != nil {
		return Result{}, fmt.Errorf("provision %s: %w", req.ClientID, err)
	}
	if !result.Success {
		message := result.Error
		if message == "" {
			message = "orchestrator reported failure"
		}
		return result, errors.New(message)
	}
	return result, nil
}
