package qualification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/httpkit"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
)

const defaultTriggerTimeout = 2 * time.Minute

// HTTPTrigger calls the internal qualify and proposal endpoints on a detached
// goroutine. It is the fallback when no task queue is configured.
type HTTPTrigger struct {
	baseURL string
	secret  string
	client  *http.Client
	log     *logger.Logger
	wg      sync.WaitGroup
}

func NewHTTPTrigger(cfg config.InternalAPIConfig, log *logger.Logger) *HTTPTrigger {
	return &HTTPTrigger{
		baseURL: strings.TrimRight(cfg.GetAppBaseURL(), "/"),
		secret:  cfg.GetInternalAPISecret(),
		client:  &http.Client{Timeout: defaultTriggerTimeout},
		log:     log,
	}
}

// TriggerQualification posts to /api/v1/leads/:id/qualify and returns at once.
func (t *HTTPTrigger) TriggerQualification(ctx context.Context, leadID string) error {
	return t.fire(ctx, leadID, "qualify")
}

// TriggerProposal posts to /api/v1/leads/:id/proposal and returns at once.
func (t *HTTPTrigger) TriggerProposal(ctx context.Context, leadID string) error {
	return t.fire(ctx, leadID, "proposal")
}

// Wait blocks until in-flight calls have returned.
func (t *HTTPTrigger) Wait() {
	t.wg.Wait()
}

func (t *HTTPTrigger) fire(ctx context.Context, leadID, action string) error {
	if t.baseURL == "" {
		return fmt.Errorf("app base url is not configured")
	}
	endpoint := fmt.Sprintf("%s/api/v1/leads/%s/%s", t.baseURL, url.PathEscape(leadID), action)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTriggerTimeout)
		defer cancel()
		if err := t.post(callCtx, endpoint); err != nil {
			t.log.Error("internal trigger failed", "action", action, "lead_id", leadID, "error", err)
		}
	}()
	return nil
}

func (t *HTTPTrigger) post(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpkit.HeaderInternalSecret, t.secret)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
