package model

import "time"

// ProfilingArtifact - 오브젝트 스토어에서 찾은 최신 JFR 파일
type ProfilingArtifact struct {
	Data []byte
	Key  string
	// yyyyMMdd-HHmmss. 분석 결과물 키의 공통 접두어로 사용
	Datetime string
}

// 파이프라인 실행 상태
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// 보고서 출처
const (
	ReportSourceAI       = "ai"
	ReportSourceFallback = "fallback"
)

// AnalysisRun - 파드 파이프라인 1회 실행 기록 (analysis_runs 테이블)
type AnalysisRun struct {
	RunID            string    `json:"run_id"`
	Pod              string    `json:"pod"`
	PodIP            string    `json:"pod_ip"`
	Datetime         string    `json:"datetime"`
	ProfileKey       string    `json:"profile_key,omitempty"`
	ReportSource     string    `json:"report_source"`
	ArtifactKeys     []string  `json:"artifact_keys"`
	ArtifactFailures int       `json:"artifact_failures"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}
