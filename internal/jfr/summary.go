// JFR 파일에서 모델 입력용 런타임 지표를 추출
//
// 추출 항목: CPU load, GC heap, JVM 정보, 샘플 수
// 스택 hotspot 분석은 flamegraph 패키지(collapsed stacks)에서 담당한다.

package jfr

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// 요약에 사용하는 이벤트 타입
const (
	EventWallClockSample = "profiler.WallClockSample"
	EventExecutionSample = "jdk.ExecutionSample"
	EventCPULoad         = "jdk.CPULoad"
	EventGCHeapSummary   = "jdk.GCHeapSummary"
	EventJVMInformation  = "jdk.JVMInformation"
)

// Summary - JFR 파일 하나에서 뽑은 런타임 지표 (생성 후 변경하지 않음)
type Summary struct {
	CPULoads     []CPULoad
	GCHeaps      []GCHeap
	JVMInfo      string
	TotalSamples int
}

// CPULoad - jdk.CPULoad 이벤트 (0.0 ~ 1.0)
type CPULoad struct {
	JVMUser      float64
	JVMSystem    float64
	MachineTotal float64
}

// GCHeap - jdk.GCHeapSummary 이벤트 (bytes)
type GCHeap struct {
	HeapUsed  int64
	Committed int64
}

// Parse - JFR 바이트를 읽어 Summary 생성
// 중간에 읽기 에러가 나면 그때까지 모은 값으로 Summary를 반환한다 (에러를 올리지 않음).
func Parse(raw []byte) Summary {
	var s Summary
	missingCommitted := 0
	r := NewReader(raw)

	for {
		ev, err := r.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("[JFR] Parsing incomplete (file may be truncated): %v", err)
			}
			break
		}

		switch ev.Type {
		case EventWallClockSample, EventExecutionSample:
			s.TotalSamples++
		case EventCPULoad:
			s.CPULoads = append(s.CPULoads, CPULoad{
				JVMUser:      ev.Float("jvmUser"),
				JVMSystem:    ev.Float("jvmSystem"),
				MachineTotal: ev.Float("machineTotal"),
			})
		case EventGCHeapSummary:
			// committedSize가 없으면 0으로 둔다
			if !ev.Has("heapSpace.committedSize") {
				missingCommitted++
			}
			s.GCHeaps = append(s.GCHeaps, GCHeap{
				HeapUsed:  ev.Int("heapUsed"),
				Committed: ev.Int("heapSpace.committedSize"),
			})
		case EventJVMInformation:
			s.JVMInfo = ev.String("jvmVersion") + " | args: " + ev.String("jvmArguments")
		default:
			// 그 외 이벤트는 무시
		}
	}

	if missingCommitted > 0 {
		log.Printf("[JFR] %d GC heap events without heapSpace.committedSize (reported as 0)", missingCommitted)
	}
	log.Printf("[JFR] Parsed: %d samples, %d CPU events, %d GC events",
		s.TotalSamples, len(s.CPULoads), len(s.GCHeaps))
	return s
}

const mb = 1024 * 1024

// FormatForModel - Summary를 모델 입력용 markdown으로 변환
func FormatForModel(s Summary) string {
	var sb strings.Builder

	sb.WriteString("## JFR Runtime Metrics\n\n")

	if s.JVMInfo != "" {
		fmt.Fprintf(&sb, "**JVM:** %s\n\n", s.JVMInfo)
	}

	fmt.Fprintf(&sb, "**Total samples:** %d\n\n", s.TotalSamples)

	if len(s.CPULoads) > 0 {
		var sumUser, maxUser, sumMachine float64
		for i, c := range s.CPULoads {
			sumUser += c.JVMUser
			sumMachine += c.MachineTotal
			if i == 0 || c.JVMUser > maxUser {
				maxUser = c.JVMUser
			}
		}
		n := float64(len(s.CPULoads))
		fmt.Fprintf(&sb, "**CPU load (%d samples):**\n", len(s.CPULoads))
		fmt.Fprintf(&sb, "  JVM user:      avg=%.1f%% max=%.1f%%\n", sumUser/n*100, maxUser*100)
		fmt.Fprintf(&sb, "  Machine total: avg=%.1f%%\n\n", sumMachine/n*100)
	}

	if len(s.GCHeaps) > 0 {
		minUsed, maxUsed := s.GCHeaps[0].HeapUsed, s.GCHeaps[0].HeapUsed
		for _, g := range s.GCHeaps[1:] {
			minUsed = min(minUsed, g.HeapUsed)
			maxUsed = max(maxUsed, g.HeapUsed)
		}
		last := s.GCHeaps[len(s.GCHeaps)-1]
		fmt.Fprintf(&sb, "**GC heap (%d events):**\n", len(s.GCHeaps))
		fmt.Fprintf(&sb, "  used: %d-%dMB, committed: %dMB\n\n", minUsed/mb, maxUsed/mb, last.Committed/mb)
	}

	return sb.String()
}
