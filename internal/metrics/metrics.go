// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ダイジェストローダー、お気に入りサービス、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordDigestLoad(result string, duration time.Duration)
	RecordFavouriteToggle(result string)
	RecordStoreFailure(op string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	digestLoads       *prometheus.CounterVec
	digestLoadLatency prometheus.Histogram
	favouriteToggles  *prometheus.CounterVec
	storeFailures     *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		digestLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weeklynews_digest_loads_total",
			Help: "結果別のダイジェスト読み込み数",
		}, []string{"result"}),
		digestLoadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weeklynews_digest_load_latency_seconds",
			Help:    "ダイジェスト読み込みのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		favouriteToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weeklynews_favourite_toggles_total",
			Help: "結果別のお気に入り切り替え数",
		}, []string{"result"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weeklynews_store_failures_total",
			Help: "操作別のお気に入りストア障害数",
		}, []string{"op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weeklynews_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.digestLoads,
		c.digestLoadLatency,
		c.favouriteToggles,
		c.storeFailures,
		c.httpStatus,
	)

	return c
}

// RecordDigestLoad はダイジェスト読み込みの結果とレイテンシを記録する。
func (c *Collector) RecordDigestLoad(result string, duration time.Duration) {
	c.digestLoads.WithLabelValues(result).Inc()
	c.digestLoadLatency.Observe(duration.Seconds())
}

// RecordFavouriteToggle はお気に入り切り替えの結果を記録する。
func (c *Collector) RecordFavouriteToggle(result string) {
	c.favouriteToggles.WithLabelValues(result).Inc()
}

// RecordStoreFailure はお気に入りストアの操作失敗を記録する。
func (c *Collector) RecordStoreFailure(op string) {
	c.storeFailures.WithLabelValues(op).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
