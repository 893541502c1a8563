package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/schoolgrid/internal/limits"
	"github.com/jmwangi/schoolgrid/internal/plan"
	"github.com/jmwangi/schoolgrid/internal/subscription"
	"github.com/jmwangi/schoolgrid/internal/usage"
)

func setupRouter(t *testing.T, counts map[limits.Resource]uint64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	plans := plan.NewMemoryStore()
	if err := plan.Seed(context.Background(), plans); err != nil {
		t.Fatalf("seed plans: %v", err)
	}
	subs := subscription.NewMemoryStore()
	planID := "pln_starter"
	sub := &subscription.Subscription{
		SchoolID:    "sch_1",
		PlanID:      &planID,
		Status:      subscription.StatusActive,
		RenewalDate: time.Now().AddDate(0, 1, 0),
	}
	if err := subs.Create(context.Background(), sub); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	resolver := NewResolver(subs, plans, testLogger())
	counter := usage.NewCounter(countSource{counts: counts})
	enforcer := NewEnforcer(resolver, counter, testPricer, testLogger())

	r := gin.New()
	v1 := r.Group("/v1")
	NewHandler(resolver, enforcer, counter).RegisterRoutes(v1)
	return r
}

func TestGetEntitlements(t *testing.T) {
	r := setupRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/schools/sch_1/entitlements", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Entitlements struct {
			Source string                     `json:"source"`
			Mode   string                     `json:"mode"`
			Limits map[string]json.RawMessage `json:"limits"`
		} `json:"entitlements"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Entitlements.Source != SourcePlan {
		t.Errorf("expected source plan, got %s", resp.Entitlements.Source)
	}
	if string(resp.Entitlements.Limits["students"]) != "50" {
		t.Errorf("expected students limit 50, got %s", resp.Entitlements.Limits["students"])
	}
}

func TestGetEntitlements_MissingSubscriptionIs404(t *testing.T) {
	r := setupRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/schools/sch_ghost/entitlements", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error != "subscription_not_found" {
		t.Errorf("expected subscription_not_found, got %s", resp.Error)
	}
}

func TestGetUsage(t *testing.T) {
	r := setupRouter(t, map[limits.Resource]uint64{
		limits.ResourceStudents: 20,
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/schools/sch_1/usage", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Usage map[string]struct {
			Used      uint64  `json:"used"`
			Remaining *uint64 `json:"remaining"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	students := resp.Usage["students"]
	if students.Used != 20 {
		t.Errorf("expected 20 used, got %d", students.Used)
	}
	if students.Remaining == nil || *students.Remaining != 30 {
		t.Errorf("expected 30 remaining, got %v", students.Remaining)
	}
}

func TestAuthorizeEndpoint_Deny(t *testing.T) {
	r := setupRouter(t, map[limits.Resource]uint64{
		limits.ResourceStudents: 50,
	})

	body, _ := json.Marshal(map[string]interface{}{"resource": "students", "qty": 1})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/schools/sch_1/entitlements/authorize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Decision Decision `json:"decision"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Decision.Verdict != VerdictDeny {
		t.Errorf("expected deny, got %s", resp.Decision.Verdict)
	}
	if resp.Decision.Reason != ReasonLimitExceeded {
		t.Errorf("expected limit_exceeded, got %s", resp.Decision.Reason)
	}
}

func TestAuthorizeEndpoint_MissingResource(t *testing.T) {
	r := setupRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/schools/sch_1/entitlements/authorize", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
