// 알림 -> 파드별 분석 파이프라인
//
// 처리 흐름 (파드마다 독립 goroutine):
//  1. thread dump 조회 (실패 시 실패 메시지로 대체)
//  2. 오늘/어제 최신 JFR 조회 (없으면 "No profiling data available")
//  3. JFR 요약 + collapsed stacks -> 모델 입력
//  4. flamegraph HTML 생성 (실패 시 실패 메시지로 대체)
//  5. 보고서 생성 (AI 실패 시 fallback)
//  6. 결과물 5개 저장
//  7. run ledger 기록, 알림 전송 (설정된 경우)
//
// 재시도/큐 없음. 파드 하나의 panic은 해당 파드만 실패로 집계한다.

package service

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kube-rca/jvm-analyzer/internal/flamegraph"
	"github.com/kube-rca/jvm-analyzer/internal/jfr"
	"github.com/kube-rca/jvm-analyzer/internal/metrics"
	"github.com/kube-rca/jvm-analyzer/internal/model"
)

const (
	noProfilingData       = "No profiling data available"
	flamegraphFailedText  = "Flamegraph generation failed: "
	collapsedStacksHeader = "## Collapsed Stacks (async-profiler)\n\nEach line: stack trace;...;method count\n\n```\n"
)

type threadDumpFetcher interface {
	Fetch(ctx context.Context, podIP string) string
}

type profilingFinder interface {
	Latest(ctx context.Context, pod string) (*model.ProfilingArtifact, error)
}

type reportAnalyzer interface {
	Analyze(ctx context.Context, threadDump, profiling string) Report
}

type artifactWriter interface {
	Store(ctx context.Context, set ArtifactSet) ([]string, int)
}

// runRecorder - db.Postgres (analysis_runs)
type runRecorder interface {
	InsertAnalysisRun(ctx context.Context, run model.AnalysisRun) error
}

// AnalyzerService 구조체 정의
type AnalyzerService struct {
	threadDumps    threadDumpFetcher
	locator        profilingFinder
	flamegraphs    flamegraph.Generator
	include        string
	reports        reportAnalyzer
	artifacts      artifactWriter
	ledger         runRecorder
	notifiers      []Notifier
	maxConcurrency int
	now            func() time.Time
}

// AnalyzerOptions - 선택 구성 요소
type AnalyzerOptions struct {
	// flamegraph --include 패턴 (비우면 필터 없음)
	FlamegraphInclude string
	// 0이면 무제한
	MaxConcurrency int
	Ledger         runRecorder
	Notifiers      []Notifier
}

// AnalyzerService 객체 생성
func NewAnalyzerService(
	threadDumps threadDumpFetcher,
	locator profilingFinder,
	generator flamegraph.Generator,
	reports reportAnalyzer,
	artifacts artifactWriter,
	opts AnalyzerOptions,
) *AnalyzerService {
	s := &AnalyzerService{
		threadDumps:    threadDumps,
		locator:        locator,
		flamegraphs:    generator,
		include:        opts.FlamegraphInclude,
		reports:        reports,
		artifacts:      artifacts,
		ledger:         opts.Ledger,
		maxConcurrency: opts.MaxConcurrency,
		now:            time.Now,
	}
	for _, n := range opts.Notifiers {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
	return s
}

// Dispatch - 유효한 알림마다 파이프라인을 병렬 실행하고 완료 개수를 반환
func (s *AnalyzerService) Dispatch(ctx context.Context, alerts []model.PodAlert) int {
	valid := validAlerts(alerts)
	if len(valid) == 0 {
		return 0
	}

	var (
		g         errgroup.Group
		processed atomic.Int64
	)
	if s.maxConcurrency > 0 {
		// 한도에 도달하면 Go가 블록된다 (drop 하지 않음)
		g.SetLimit(s.maxConcurrency)
	}

	for _, alert := range valid {
		g.Go(func() error {
			// 실패 기록도 같은 run ID로 남긴다
			runID := uuid.NewString()
			if err := s.safeProcess(ctx, runID, alert); err != nil {
				log.Printf("[Analyzer] Pipeline failed for pod=%s (run=%s): %v", alert.Pod, runID, err)
				metrics.PipelinesTotal.WithLabelValues(model.RunStatusFailed).Inc()
				s.record(ctx, model.AnalysisRun{
					RunID:     runID,
					Pod:       alert.Pod,
					PodIP:     alert.PodIP,
					Status:    model.RunStatusFailed,
					Error:     err.Error(),
					CreatedAt: s.now(),
				})
				return nil
			}
			metrics.PipelinesTotal.WithLabelValues(model.RunStatusCompleted).Inc()
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("[Analyzer] Processed %d/%d alerts", processed.Load(), len(valid))
	return int(processed.Load())
}

// DispatchAsync - 백그라운드로 Dispatch를 시작하고 접수한 개수를 반환
// 요청 context가 끝나도 파이프라인은 계속 실행된다.
func (s *AnalyzerService) DispatchAsync(ctx context.Context, alerts []model.PodAlert) int {
	valid := validAlerts(alerts)
	if len(valid) == 0 {
		return 0
	}
	bg := context.WithoutCancel(ctx)
	go s.Dispatch(bg, valid)
	log.Printf("[Analyzer] Accepted %d alerts for async processing", len(valid))
	return len(valid)
}

func validAlerts(alerts []model.PodAlert) []model.PodAlert {
	valid := make([]model.PodAlert, 0, len(alerts))
	for _, a := range alerts {
		if !a.Valid() {
			log.Printf("[Analyzer] Skipping alert with blank pod or pod IP (pod=%q, ip=%q)", a.Pod, a.PodIP)
			continue
		}
		valid = append(valid, a)
	}
	return valid
}

// safeProcess - panic을 에러로 변환
func (s *AnalyzerService) safeProcess(ctx context.Context, runID string, alert model.PodAlert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Printf("[Analyzer] Recovered panic for pod=%s: %v\n%s", alert.Pod, r, debug.Stack())
		}
	}()
	s.process(ctx, runID, alert)
	return nil
}

func (s *AnalyzerService) process(ctx context.Context, runID string, alert model.PodAlert) {
	start := s.now()
	log.Printf("[Analyzer] Starting analysis for pod=%s (IP: %s, run=%s)", alert.Pod, alert.PodIP, runID)

	threadDump := s.threadDumps.Fetch(ctx, alert.PodIP)

	profile, err := s.locator.Latest(ctx, alert.Pod)
	if err != nil {
		log.Printf("[Analyzer] Failed to locate profiling data for pod=%s: %v", alert.Pod, err)
		profile = nil
	}

	set := ArtifactSet{
		Pod:              alert.Pod,
		Datetime:         start.Format(datetimeLayout),
		ThreadDump:       threadDump,
		ProfilingSummary: noProfilingData,
		FlamegraphHTML:   noProfilingData,
	}
	profileKey := ""
	if profile != nil {
		profileKey = profile.Key
		set.Datetime = profile.Datetime
		set.JFR = profile.Data
		set.ProfilingSummary = s.profilingSummary(ctx, profile.Data)
		set.FlamegraphHTML = s.flamegraphHTML(ctx, profile.Data)
	}

	report := s.reports.Analyze(ctx, threadDump, set.ProfilingSummary)
	set.Analysis = report.Text
	metrics.ReportsTotal.WithLabelValues(report.Source).Inc()

	keys, failures := s.artifacts.Store(ctx, set)

	elapsed := s.now().Sub(start)
	metrics.PipelineDuration.Observe(elapsed.Seconds())
	log.Printf("[Analyzer] Completed analysis for pod=%s in %dms (JFR: %s, datetime: %s, report: %s)",
		alert.Pod, elapsed.Milliseconds(), profileKeyOrNone(profileKey), set.Datetime, report.Source)

	reportKey := ""
	for _, k := range keys {
		if strings.Contains(k, "_analysis_") {
			reportKey = k
		}
	}

	s.record(ctx, model.AnalysisRun{
		RunID:            runID,
		Pod:              alert.Pod,
		PodIP:            alert.PodIP,
		Datetime:         set.Datetime,
		ProfileKey:       profileKey,
		ReportSource:     report.Source,
		ArtifactKeys:     keys,
		ArtifactFailures: failures,
		Status:           model.RunStatusCompleted,
		DurationMs:       elapsed.Milliseconds(),
		CreatedAt:        start,
	})

	s.notify(ctx, model.ReportNotification{
		RunID:     runID,
		Pod:       alert.Pod,
		PodIP:     alert.PodIP,
		Datetime:  set.Datetime,
		Source:    report.Source,
		Report:    report.Text,
		ReportKey: reportKey,
	})
}

// profilingSummary - 런타임 지표 + collapsed stacks (모델 입력)
func (s *AnalyzerService) profilingSummary(ctx context.Context, raw []byte) string {
	summary := jfr.FormatForModel(jfr.Parse(raw))

	collapsed, err := s.flamegraphs.ToCollapsed(ctx, raw)
	if err != nil {
		log.Printf("[Analyzer] Collapsed stacks generation failed: %v", err)
		return summary
	}
	if strings.TrimSpace(collapsed) == "" {
		return summary
	}
	if !strings.HasSuffix(collapsed, "\n") {
		collapsed += "\n"
	}
	// summary는 빈 줄로 끝난다
	return summary + collapsedStacksHeader + collapsed + "```\n"
}

func (s *AnalyzerService) flamegraphHTML(ctx context.Context, raw []byte) string {
	html, err := s.flamegraphs.ToHTML(ctx, raw, s.include)
	if err != nil {
		log.Printf("[Analyzer] Flamegraph generation failed: %v", err)
		return flamegraphFailedText + err.Error()
	}
	return html
}

func (s *AnalyzerService) record(ctx context.Context, run model.AnalysisRun) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.InsertAnalysisRun(ctx, run); err != nil {
		log.Printf("[Analyzer] Failed to record analysis run %s: %v", run.RunID, err)
	}
}

func (s *AnalyzerService) notify(ctx context.Context, n model.ReportNotification) {
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			log.Printf("[Analyzer] Failed to send report notification for pod=%s: %v", n.Pod, err)
		}
	}
}

func profileKeyOrNone(key string) string {
	if key == "" {
		return "none"
	}
	return key
}
