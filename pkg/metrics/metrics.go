// Package metrics はGatewayのPrometheusメトリクスを定義する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はGatewayが記録するメトリクスの集合。
// テストごとに独立したレジストリを使えるよう、グローバル変数にはしない。
type Metrics struct {
	// AuthDecisions はGateの判定数を結果ごとに数える。
	AuthDecisions *prometheus.CounterVec
	// RequestsTotal はHTTPリクエスト数をメソッド・ルート・ステータスごとに数える。
	RequestsTotal *prometheus.CounterVec
	// UpstreamErrors は下流サービスへの転送失敗数をサービスごとに数える。
	UpstreamErrors *prometheus.CounterVec
}

// New はメトリクスを生成してregに登録する。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokengate_auth_decisions_total",
				Help: "Token gate decisions by outcome",
			},
			[]string{"outcome"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokengate_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokengate_upstream_errors_total",
				Help: "Failed upstream forwards by service",
			},
			[]string{"service"},
		),
	}
	reg.MustRegister(m.AuthDecisions, m.RequestsTotal, m.UpstreamErrors)
	return m
}

// ObserveDecision はGateの判定結果を1件記録する。
func (m *Metrics) ObserveDecision(outcome string) {
	m.AuthDecisions.WithLabelValues(outcome).Inc()
}

// otherMethod は標準外のHTTPメソッドをまとめるラベル値。
const otherMethod = "other"

// knownMethods はラベルにそのまま使うHTTPメソッドの集合。
var knownMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodConnect: {},
	http.MethodOptions: {},
	http.MethodTrace:   {},
}

// ObserveRequest はHTTPリクエストを1件記録する。
// routeには未登録パスで値が爆発しないよう、ルーティングのパターンを渡すこと。
// 標準外のメソッドは "other" にまとめる。
func (m *Metrics) ObserveRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.RequestsTotal.WithLabelValues(normalizeMethod(method), route, strconv.Itoa(status)).Inc()
}

// normalizeMethod はメソッドを既知の値か "other" に丸める。
func normalizeMethod(method string) string {
	if _, ok := knownMethods[method]; ok {
		return method
	}
	return otherMethod
}

// ObserveUpstreamError は下流サービスへの転送失敗を1件記録する。
func (m *Metrics) ObserveUpstreamError(service string) {
	m.UpstreamErrors.WithLabelValues(service).Inc()
}
