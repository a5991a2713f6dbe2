// Package metrics 提供 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 同步服务的全部指标，nil 接收者上的方法为空操作
type Metrics struct {
	// 分页加载
	MediatorLoadsTotal   *prometheus.CounterVec
	MediatorLoadDuration *prometheus.HistogramVec
	RowsMergedTotal      prometheus.Counter
	EntitiesDroppedTotal prometheus.Counter

	// 本地覆盖层写入
	WriteThroughFailuresTotal *prometheus.CounterVec

	// 上游 API
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// 事件
	EventsDispatchedTotal *prometheus.CounterVec
	EventsDroppedTotal    prometheus.Counter
}

// New 创建并注册所有指标，reg 为 nil 时使用默认注册表
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{}

	m.MediatorLoadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedisync_mediator_loads_total",
			Help: "Total number of remote mediator loads by load type and outcome",
		},
		[]string{"load_type", "outcome"},
	)

	m.MediatorLoadDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fedisync_mediator_load_duration_seconds",
			Help:    "Duration of remote mediator loads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"load_type"},
	)

	m.RowsMergedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "fedisync_rows_merged_total",
			Help: "Total number of conversation rows upserted into the local store",
		},
	)

	m.EntitiesDroppedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "fedisync_entities_dropped_total",
			Help: "Total number of fetched conversations dropped for missing a last status",
		},
	)

	m.WriteThroughFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedisync_write_through_failures_total",
			Help: "Total number of overlay write-through failures",
		},
		[]string{"field"},
	)

	m.APIRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedisync_api_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"endpoint", "outcome"},
	)

	m.APIRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fedisync_api_request_duration_seconds",
			Help:    "Duration of upstream API requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"endpoint"},
	)

	m.EventsDispatchedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedisync_events_dispatched_total",
			Help: "Total number of events dispatched on the event hub",
		},
		[]string{"kind"},
	)

	m.EventsDroppedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "fedisync_events_dropped_total",
			Help: "Total number of events dropped because a subscriber was full",
		},
	)

	return m
}

// ObserveLoad 记录一次分页加载
func (m *Metrics) ObserveLoad(loadType, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.MediatorLoadsTotal.WithLabelValues(loadType, outcome).Inc()
	m.MediatorLoadDuration.WithLabelValues(loadType).Observe(time.Since(start).Seconds())
}

// AddMerged 记录写入的行数与丢弃的实体数
func (m *Metrics) AddMerged(rows, dropped int) {
	if m == nil {
		return
	}
	m.RowsMergedTotal.Add(float64(rows))
	m.EntitiesDroppedTotal.Add(float64(dropped))
}

// WriteThroughFailed 记录一次覆盖层写入失败
func (m *Metrics) WriteThroughFailed(field string) {
	if m == nil {
		return
	}
	m.WriteThroughFailuresTotal.WithLabelValues(field).Inc()
}

// ObserveAPI 记录一次上游请求
func (m *Metrics) ObserveAPI(endpoint, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// EventDispatched 记录一次事件分发
func (m *Metrics) EventDispatched(kind string) {
	if m == nil {
		return
	}
	m.EventsDispatchedTotal.WithLabelValues(kind).Inc()
}

// EventDropped 记录一次事件丢弃
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.EventsDroppedTotal.Inc()
}
