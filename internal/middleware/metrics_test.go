package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockLatencyRecorder struct {
	recorded []time.Duration
}

func (m *mockLatencyRecorder) RecordRequestLatency(d time.Duration) {
	m.recorded = append(m.recorded, d)
}

var _ RequestLatencyRecorder = (*mockLatencyRecorder)(nil)

// レイテンシがリクエストごとに記録されること
func TestMetricsMiddleware_RecordsLatency(t *testing.T) {
	recorder := &mockLatencyRecorder{}
	handler := NewMetricsMiddleware(recorder)(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user", nil))
	}

	if len(recorder.recorded) != 3 {
		t.Errorf("recorded %d latencies, want 3", len(recorder.recorded))
	}
	for _, d := range recorder.recorded {
		if d < 0 {
			t.Errorf("negative latency recorded: %v", d)
		}
	}
}

// レコーダーがnilでもハンドラーがそのまま動作すること
func TestMetricsMiddleware_NilRecorder(t *testing.T) {
	handler := NewMetricsMiddleware(nil)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
