// 包 metrics 维护抓取流程的 Prometheus 指标。
// 定时任务没有 /metrics 端点，WriteTextfile 将指标写给 node_exporter 的 textfile collector。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go-wod-trmnl/internal/model"
)

// Registry 为独立注册表，只包含 wod_* 指标。
var Registry = prometheus.NewRegistry()

var (
	extractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wod",
		Name:      "extractions_total",
		Help:      "Workout pages extracted, by classification.",
	}, []string{"kind"})
	sinkResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wod",
		Name:      "sink_results_total",
		Help:      "Sink delivery attempts, by sink and outcome.",
	}, []string{"sink", "outcome"})
	lastRunGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wod",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed run.",
	})
)

func init() {
	Registry.MustRegister(extractionsTotal, sinkResultsTotal, lastRunGauge)
}

// Kind 返回记录分类：rest/hero/named/generic。
func Kind(w model.Workout) string {
	switch {
	case w.IsRestDay:
		return "rest"
	case w.IsHeroWorkout:
		return "hero"
	case w.IsNamedWorkout:
		return "named"
	default:
		return "generic"
	}
}

// RecordExtraction 计数一次解析。
func RecordExtraction(w model.Workout) {
	extractionsTotal.WithLabelValues(Kind(w)).Inc()
}

// RecordSink 按结果计数一次写入/推送。
func RecordSink(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	sinkResultsTotal.WithLabelValues(sink, outcome).Inc()
}

// RecordRun 更新最近一次运行时间。
func RecordRun(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastRunGauge.Set(float64(ts.Unix()))
}

// WriteTextfile 以文本格式写出指标；path 为空时不做任何事。
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
