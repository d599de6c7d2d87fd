// Prometheus 지표 정의
// /metrics 엔드포인트(promhttp)로 노출된다.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jvm_analyzer"

var (
	// 파드 파이프라인 실행 결과 (completed | failed)
	PipelinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipelines_total",
		Help:      "Pod analysis pipelines by outcome.",
	}, []string{"status"})

	// 보고서 출처 (ai | fallback)
	ReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_total",
		Help:      "Analysis reports by source.",
	}, []string{"source"})

	ArtifactWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artifact_writes_total",
		Help:      "Artifact writes to the object store by kind and outcome.",
	}, []string{"kind", "status"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of a single pod analysis pipeline.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// pod 또는 instance 라벨이 없어 버려진 알림
	AlertsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_dropped_total",
		Help:      "Alerts dropped because the pod name or pod IP was missing.",
	})
)
