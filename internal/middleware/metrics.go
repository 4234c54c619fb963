package middleware

import (
	"net/http"
	"time"
)

// RequestLatencyRecorder はリクエストのレイテンシを記録する。
type RequestLatencyRecorder interface {
	RecordRequestLatency(duration time.Duration)
}

// NewMetricsMiddleware はリクエストごとの処理時間をレコーダーに記録する
// ミドルウェアを返す。recorderがnilの場合は何もしない。
func NewMetricsMiddleware(recorder RequestLatencyRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			recorder.RecordRequestLatency(time.Since(start))
		})
	}
}
