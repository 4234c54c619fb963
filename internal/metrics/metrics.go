// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordLoginAttempt(provider, outcome string)
	RecordRegistration()
	RecordSessionsCleaned(count int64)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginAttempts   *prometheus.CounterVec
	registrations   prometheus.Counter
	sessionsCleaned prometheus.Counter
	requestLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialmedia_login_attempts_total",
			Help: "プロバイダー・結果別のログイン試行の合計数",
		}, []string{"provider", "outcome"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialmedia_registrations_total",
			Help: "ローカルアカウント登録の合計数",
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialmedia_sessions_cleaned_total",
			Help: "クリーンアップワーカーが削除した期限切れセッションの合計数",
		}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "socialmedia_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginAttempts,
		c.registrations,
		c.sessionsCleaned,
		c.requestLatency,
	)

	return c
}

// RecordLoginAttempt はログイン試行を記録する。
// outcomeは"success"か"failure"。
func (c *Collector) RecordLoginAttempt(provider, outcome string) {
	c.loginAttempts.WithLabelValues(provider, outcome).Inc()
}

// RecordRegistration はローカルアカウント登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
