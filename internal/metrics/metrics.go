// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやハンドラー層から利用する。
type MetricsCollector interface {
	RecordTokenExchange(result string)
	RecordAuthRejection(reason string)
	RecordAccountingFailure()
	RecordToolCall(tool string, result string)
	RecordToolLatency(tool string, duration time.Duration)
	RecordTaskMutations(op string, count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	tokenExchanges     *prometheus.CounterVec
	authRejections     *prometheus.CounterVec
	accountingFailures prometheus.Counter
	toolCalls          *prometheus.CounterVec
	toolLatency        *prometheus.HistogramVec
	taskMutations      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokenExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_token_exchanges_total",
			Help: "トークン交換の結果別合計数",
		}, []string{"result"}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_auth_rejections_total",
			Help: "認証拒否の理由別合計数",
		}, []string{"reason"}),
		accountingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_accounting_failures_total",
			Help: "アクセス記録失敗の合計数",
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_tool_calls_total",
			Help: "ツール呼び出しのツール別・結果別合計数",
		}, []string{"tool", "result"}),
		toolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskman_tool_latency_seconds",
			Help:    "ツール呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		taskMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_task_mutations_total",
			Help: "タスク変更の操作別合計数",
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.tokenExchanges,
		c.authRejections,
		c.accountingFailures,
		c.toolCalls,
		c.toolLatency,
		c.taskMutations,
	)

	return c
}

// RecordTokenExchange はトークン交換の結果を記録する。
// resultには success / provider_error / internal_error を指定する。
func (c *Collector) RecordTokenExchange(result string) {
	c.tokenExchanges.WithLabelValues(result).Inc()
}

// RecordAuthRejection は認証拒否を記録する。
func (c *Collector) RecordAuthRejection(reason string) {
	c.authRejections.WithLabelValues(reason).Inc()
}

// RecordAccountingFailure はアクセス記録失敗を記録する。
func (c *Collector) RecordAccountingFailure() {
	c.accountingFailures.Inc()
}

// RecordToolCall はツール呼び出しの結果を記録する。
func (c *Collector) RecordToolCall(tool string, result string) {
	c.toolCalls.WithLabelValues(tool, result).Inc()
}

// RecordToolLatency はツール呼び出しのレイテンシを記録する。
func (c *Collector) RecordToolLatency(tool string, duration time.Duration) {
	c.toolLatency.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordTaskMutations はタスク変更の件数を記録する。
// opには create / update / delete を指定する。
func (c *Collector) RecordTaskMutations(op string, count int) {
	c.taskMutations.WithLabelValues(op).Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// ルーターの/metricsにマウントして使用する。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
