package service

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kube-rca/jvm-analyzer/internal/model"
)

type fakeThreadDumps struct {
	panicPod string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (f *fakeThreadDumps) Fetch(_ context.Context, podIP string) string {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if podIP == f.panicPod {
		panic("thread dump exploded")
	}
	return `{"threads":[]}`
}

type fakeLocator struct {
	profile *model.ProfilingArtifact
	err     error
}

func (f *fakeLocator) Latest(context.Context, string) (*model.ProfilingArtifact, error) {
	return f.profile, f.err
}

type fakeGenerator struct {
	collapsed    string
	collapsedErr error
	htmlErr      error
	include      string
}

func (f *fakeGenerator) ToHTML(_ context.Context, _ []byte, include string) (string, error) {
	f.include = include
	if f.htmlErr != nil {
		return "", f.htmlErr
	}
	return "<html>flame</html>", nil
}

func (f *fakeGenerator) ToCollapsed(context.Context, []byte) (string, error) {
	return f.collapsed, f.collapsedErr
}

type fakeReports struct {
	mu        sync.Mutex
	profiling []string
}

func (f *fakeReports) Analyze(_ context.Context, _ string, profiling string) Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiling = append(f.profiling, profiling)
	return Report{Text: "## Health Status\nHealthy", Source: model.ReportSourceAI}
}

type fakeArtifacts struct {
	mu   sync.Mutex
	sets []ArtifactSet
}

func (f *fakeArtifacts) Store(_ context.Context, set ArtifactSet) ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, set)
	return []string{"analysis/" + set.Datetime + "_analysis_" + set.Pod + ".md"}, 0
}

type fakeLedger struct {
	mu   sync.Mutex
	runs []model.AnalysisRun
}

func (f *fakeLedger) InsertAnalysisRun(_ context.Context, run model.AnalysisRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

type fakeNotifier struct {
	mu  sync.Mutex
	got []model.ReportNotification
}

func (f *fakeNotifier) Notify(_ context.Context, n model.ReportNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, n)
	return errors.New("notifier errors are only logged")
}

func podAlerts(n int) []model.PodAlert {
	alerts := make([]model.PodAlert, 0, n)
	for i := 1; i <= n; i++ {
		alerts = append(alerts, model.PodAlert{
			Pod:   "unicorn-" + string(rune('0'+i)),
			PodIP: "10.0.0." + string(rune('0'+i)),
		})
	}
	return alerts
}

func TestDispatchIsolatesPanics(t *testing.T) {
	threadDumps := &fakeThreadDumps{panicPod: "10.0.0.3"}
	artifacts := &fakeArtifacts{}
	ledger := &fakeLedger{}

	svc := NewAnalyzerService(threadDumps, &fakeLocator{}, &fakeGenerator{}, &fakeReports{}, artifacts,
		AnalyzerOptions{Ledger: ledger})

	count := svc.Dispatch(context.Background(), podAlerts(5))

	assert.Equal(t, 4, count)
	require.Len(t, artifacts.sets, 4)
	for _, set := range artifacts.sets {
		assert.NotEqual(t, "unicorn-3", set.Pod)
	}

	require.Len(t, ledger.runs, 5)
	failed := 0
	for _, run := range ledger.runs {
		if run.Status == model.RunStatusFailed {
			failed++
			assert.Equal(t, "unicorn-3", run.Pod)
			assert.Contains(t, run.Error, "thread dump exploded")
		}
	}
	assert.Equal(t, 1, failed)
}

func TestDispatchPanicKeepsRunID(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	ledger := &fakeLedger{}
	svc := NewAnalyzerService(&fakeThreadDumps{panicPod: "10.0.0.1"}, &fakeLocator{}, &fakeGenerator{},
		&fakeReports{}, &fakeArtifacts{}, AnalyzerOptions{Ledger: ledger})

	assert.Equal(t, 0, svc.Dispatch(context.Background(), podAlerts(1)))

	require.Len(t, ledger.runs, 1)
	run := ledger.runs[0]
	assert.Equal(t, model.RunStatusFailed, run.Status)
	require.NotEmpty(t, run.RunID)
	// 시작 로그와 실패 로그가 ledger와 같은 run ID를 쓴다
	assert.Contains(t, logs.String(), "Starting analysis for pod=unicorn-1 (IP: 10.0.0.1, run="+run.RunID+")")
	assert.Contains(t, logs.String(), "Pipeline failed for pod=unicorn-1 (run="+run.RunID+")")
}

func TestDispatchDropsInvalidAlerts(t *testing.T) {
	artifacts := &fakeArtifacts{}
	svc := NewAnalyzerService(&fakeThreadDumps{}, &fakeLocator{}, &fakeGenerator{}, &fakeReports{}, artifacts,
		AnalyzerOptions{})

	count := svc.Dispatch(context.Background(), []model.PodAlert{
		{Pod: "", PodIP: "10.0.0.1"},
		{Pod: "unicorn-0", PodIP: " "},
		{Pod: "unicorn-1", PodIP: "10.0.0.2"},
	})

	assert.Equal(t, 1, count)
	require.Len(t, artifacts.sets, 1)
	assert.Equal(t, "unicorn-1", artifacts.sets[0].Pod)

	assert.Equal(t, 0, svc.Dispatch(context.Background(), nil))
}

func TestDispatchConcurrencyLimit(t *testing.T) {
	threadDumps := &fakeThreadDumps{delay: 20 * time.Millisecond}
	svc := NewAnalyzerService(threadDumps, &fakeLocator{}, &fakeGenerator{}, &fakeReports{}, &fakeArtifacts{},
		AnalyzerOptions{MaxConcurrency: 2})

	assert.Equal(t, 6, svc.Dispatch(context.Background(), podAlerts(6)))
	assert.LessOrEqual(t, threadDumps.maxSeen.Load(), int32(2))
}

func TestPipelineWithProfilingData(t *testing.T) {
	profile := &model.ProfilingArtifact{
		Data:     []byte("not a real jfr"),
		Key:      "profiling/unicorn-1/profile-20250102-000100.jfr",
		Datetime: "20250102-000100",
	}
	generator := &fakeGenerator{collapsed: "Main.main;Worker.run 7"}
	reports := &fakeReports{}
	artifacts := &fakeArtifacts{}
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}

	svc := NewAnalyzerService(&fakeThreadDumps{}, &fakeLocator{profile: profile}, generator, reports, artifacts,
		AnalyzerOptions{
			FlamegraphInclude: ".*unicorn.*",
			Ledger:            ledger,
			Notifiers:         []Notifier{notifier, nil},
		})

	require.Equal(t, 1, svc.Dispatch(context.Background(), podAlerts(1)))

	require.Len(t, artifacts.sets, 1)
	set := artifacts.sets[0]
	assert.Equal(t, "20250102-000100", set.Datetime)
	assert.Equal(t, profile.Data, set.JFR)
	assert.Equal(t, "<html>flame</html>", set.FlamegraphHTML)
	assert.Equal(t, `{"threads":[]}`, set.ThreadDump)
	assert.Equal(t, "## Health Status\nHealthy", set.Analysis)
	assert.Equal(t, ".*unicorn.*", generator.include)

	assert.Contains(t, set.ProfilingSummary, "**Total samples:** 0")
	assert.Contains(t, set.ProfilingSummary, "**Total samples:** 0\n\n## Collapsed Stacks (async-profiler)\n")
	assert.Contains(t, set.ProfilingSummary, "```\nMain.main;Worker.run 7\n```\n")
	assert.Equal(t, []string{set.ProfilingSummary}, reports.profiling)

	require.Len(t, ledger.runs, 1)
	run := ledger.runs[0]
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, profile.Key, run.ProfileKey)
	assert.Equal(t, model.ReportSourceAI, run.ReportSource)
	assert.NotEmpty(t, run.RunID)

	require.Len(t, notifier.got, 1)
	assert.Equal(t, run.RunID, notifier.got[0].RunID)
	assert.Equal(t, "analysis/20250102-000100_analysis_unicorn-1.md", notifier.got[0].ReportKey)
}

func TestPipelineDegradedInputs(t *testing.T) {
	profile := &model.ProfilingArtifact{Data: []byte("x"), Key: "k.jfr", Datetime: "20250102-000100"}

	t.Run("flamegraph-and-collapsed-fail", func(t *testing.T) {
		generator := &fakeGenerator{collapsedErr: errors.New("no samples"), htmlErr: errors.New("jfrconv missing")}
		artifacts := &fakeArtifacts{}
		svc := NewAnalyzerService(&fakeThreadDumps{}, &fakeLocator{profile: profile}, generator, &fakeReports{}, artifacts,
			AnalyzerOptions{})

		require.Equal(t, 1, svc.Dispatch(context.Background(), podAlerts(1)))

		set := artifacts.sets[0]
		assert.Equal(t, "Flamegraph generation failed: jfrconv missing", set.FlamegraphHTML)
		assert.NotContains(t, set.ProfilingSummary, "Collapsed Stacks")
		assert.Contains(t, set.ProfilingSummary, "## JFR Runtime Metrics")
	})

	t.Run("locator-error", func(t *testing.T) {
		reports := &fakeReports{}
		artifacts := &fakeArtifacts{}
		svc := NewAnalyzerService(&fakeThreadDumps{}, &fakeLocator{err: errors.New("s3 down")}, &fakeGenerator{}, reports, artifacts,
			AnalyzerOptions{})
		svc.now = fixedClock(time.Date(2025, 5, 6, 7, 8, 9, 0, time.Local))

		require.Equal(t, 1, svc.Dispatch(context.Background(), podAlerts(1)))

		set := artifacts.sets[0]
		assert.Equal(t, "20250506-070809", set.Datetime)
		assert.Equal(t, "No profiling data available", set.ProfilingSummary)
		assert.Equal(t, []string{"No profiling data available"}, reports.profiling)
	})
}

func TestDispatchAsync(t *testing.T) {
	artifacts := &fakeArtifacts{}
	svc := NewAnalyzerService(&fakeThreadDumps{}, &fakeLocator{}, &fakeGenerator{}, &fakeReports{}, artifacts,
		AnalyzerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	accepted := svc.DispatchAsync(ctx, append(podAlerts(2), model.PodAlert{Pod: "x"}))
	cancel()

	assert.Equal(t, 2, accepted)
	assert.Eventually(t, func() bool {
		artifacts.mu.Lock()
		defer artifacts.mu.Unlock()
		return len(artifacts.sets) == 2
	}, 2*time.Second, 10*time.Millisecond)
}
