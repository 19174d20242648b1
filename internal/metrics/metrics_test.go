package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecordRemoved(t *testing.T) {
	RecordRemoved(ReasonDelivered, 2)
	RecordRemoved(ReasonExpired, 0)
	RecordRemoved(ReasonDeleted, -1)
}

func TestHandler(t *testing.T) {
	RecordCreated()
	RecordWhois()
	RecordPoll(3)
	RecordDeliveryFailure()
	RecordRemoved(ReasonDeleted, 1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{
		"remindbot_reminders_created_total",
		`remindbot_reminders_removed_total{reason="deleted"}`,
		"remindbot_whois_queries_total",
		"remindbot_worker_polls_total",
		"remindbot_due_receivers 3",
		"remindbot_delivery_failures_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
