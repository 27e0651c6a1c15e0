package capture

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/activity"
	apphttp "github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/http"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/leadstest"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type recordingTrigger struct {
	mu    sync.Mutex
	leads []string
}

func (r *recordingTrigger) TriggerQualification(_ context.Context, leadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads = append(r.leads, leadID)
	return nil
}

type fixture struct {
	leads    *leadstest.Store
	activity *leadstest.ActivityLog
	trigger  *recordingTrigger
	router   *gin.Engine
}

func newFixture(limiter ratelimit.Limiter) *fixture {
	gin.SetMode(gin.TestMode)
	log := logger.NewWithWriter("test", io.Discard)
	f := &fixture{
		leads:    leadstest.NewStore(),
		activity: &leadstest.ActivityLog{},
		trigger:  &recordingTrigger{},
	}
	svc := NewService(f.leads, f.activity, log)
	svc.SetQualificationTrigger(f.trigger)

	f.router = gin.New()
	NewModule(svc, limiter, log).RegisterRoutes(&apphttp.RouterContext{
		Engine: f.router,
		V1:     f.router.Group("/api/v1"),
	})
	return f
}

func (f *fixture) post(body, ip string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads/capture", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

const validBody = `{
	"email": " Owner@Example.com ",
	"company_name": "My Cool Business",
	"contact_name": "Thandi",
	"phone": "0821234567",
	"business_issues": ["slow invoicing", "  ", "<b>missed leads</b>"]
}`

func TestCaptureCreatesPendingLead(t *testing.T) {
	f := newFixture(nil)

	rec, body := f.post(validBody, "198.51.100.7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	leadID, _ := body["leadId"].(string)
	if body["success"] != true || leadID == "" {
		t.Fatalf("unexpected body %v", body)
	}

	lead, ok := f.leads.Get(leadID)
	if !ok {
		t.Fatal("expected stored lead")
	}
	if lead.QualificationStatus != domain.StatusPending || lead.Source != domain.SourceQualifyForm {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if lead.EmailAddress() != "owner@example.com" {
		t.Fatalf("expected normalised email, got %q", lead.EmailAddress())
	}
	if lead.Phone() != "+27821234567" {
		t.Fatalf("expected E.164 phone, got %q", lead.Phone())
	}
	if len(lead.BusinessIssues) != 2 || lead.BusinessIssues[1] != "missed leads" {
		t.Fatalf("unexpected issues %v", lead.BusinessIssues)
	}
	if f.activity.Count(activity.EventLeadCaptured) != 1 {
		t.Fatal("expected a lead_captured entry")
	}
	if len(f.trigger.leads) != 1 || f.trigger.leads[0] != leadID {
		t.Fatalf("expected qualification trigger, got %v", f.trigger.leads)
	}
}

func TestCaptureDeduplicatesByEmail(t *testing.T) {
	f := newFixture(nil)

	_, first := f.post(validBody, "198.51.100.7")
	rec, second := f.post(strings.Replace(validBody, "Owner@Example.com", "owner@example.com", 1), "198.51.100.8")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if second["leadId"] != first["leadId"] || second["message"] != msgAlreadyCaptured {
		t.Fatalf("expected the earlier lead, got %v", second)
	}
	if f.leads.Count() != 1 {
		t.Fatalf("expected one stored lead, got %d", f.leads.Count())
	}
	if len(f.trigger.leads) != 1 {
		t.Fatal("a duplicate must not trigger qualification again")
	}
}

func TestCaptureHoneypot(t *testing.T) {
	f := newFixture(nil)

	rec, body := f.post(`{"email":"bot@example.com","company_name":"Bot","business_issues":["x"],"honeypot":"filled"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["success"] != true || body["leadId"] != honeypotLeadID {
		t.Fatalf("unexpected body %v", body)
	}
	if f.leads.Count() != 0 {
		t.Fatal("honeypot submissions must not be stored")
	}
}

func TestCaptureValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing email", `{"company_name":"Acme","business_issues":["x"]}`, msgEmailRequired},
		{"missing company", `{"email":"a@example.com","business_issues":["x"]}`, msgCompanyRequired},
		{"blank company", `{"email":"a@example.com","company_name":"   ","business_issues":["x"]}`, msgCompanyRequired},
		{"invalid email", `{"email":"not-an-email","company_name":"Acme","business_issues":["x"]}`, msgInvalidEmail},
		{"no issues", `{"email":"a@example.com","company_name":"Acme","business_issues":[" ", ""]}`, msgIssuesRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			rec, body := f.post(tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if body["error"] != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, body["error"])
			}
			if f.leads.Count() != 0 {
				t.Fatal("invalid submissions must not be stored")
			}
		})
	}
}

func TestCaptureRejectsMalformedJSON(t *testing.T) {
	f := newFixture(nil)
	rec, _ := f.post(`{"email":`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCaptureRateLimitInMemory(t *testing.T) {
	f := newFixture(ratelimit.NewMemoryPerWindow(5, time.Minute))

	for i := 0; i < 5; i++ {
		rec, _ := f.post(`{"honeypot":"x"}`, "203.0.113.9")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec, body := f.post(`{"honeypot":"x"}`, "203.0.113.9")
	if rec.Code != http.StatusTooManyRequests || body["error"] != msgTooManyRequests {
		t.Fatalf("expected 429, got %d %v", rec.Code, body)
	}

	// Another client is unaffected.
	rec, _ = f.post(`{"honeypot":"x"}`, "203.0.113.10")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a different ip, got %d", rec.Code)
	}
}

func TestCaptureRateLimitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := newFixture(ratelimit.NewRedis(client, "capture", 5, time.Minute))
	for i := 0; i < 5; i++ {
		if rec, _ := f.post(`{"honeypot":"x"}`, "203.0.113.9"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if rec, _ := f.post(`{"honeypot":"x"}`, "203.0.113.9"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestCaptureRateLimiterFailsOpen(t *testing.T) {
	f := newFixture(brokenLimiter{})
	if rec, _ := f.post(`{"honeypot":"x"}`, "203.0.113.9"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when the limiter is down, got %d", rec.Code)
	}
}
