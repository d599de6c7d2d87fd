package flamegraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/grafana/jfr-parser/parser"
	"github.com/grafana/jfr-parser/parser/types"
)

// Collapser - grafana/jfr-parser로 wall-clock/execution 샘플을 collapsed stacks로 만든다.
type Collapser struct{}

func NewCollapser() *Collapser {
	return &Collapser{}
}

func (c *Collapser) ToCollapsed(ctx context.Context, raw []byte) (out string, err error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty profiling data")
	}
	// 손상된 입력에서 parser가 panic할 수 있다
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("jfr parser panic: %v", r)
		}
	}()

	p := parser.NewParser(raw, parser.Options{})
	counts := make(map[string]int64)
	frames := make(map[types.StackTraceRef]string)

	add := func(ref types.StackTraceRef, n int64) {
		stack, ok := frames[ref]
		if !ok {
			stack = stackString(p, ref)
			frames[ref] = stack
		}
		if stack != "" {
			counts[stack] += n
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		typ, err := p.ParseEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if len(counts) == 0 {
				return "", fmt.Errorf("failed to parse jfr: %w", err)
			}
			log.Printf("[Flamegraph] Stack parsing incomplete: %v", err)
			break
		}

		switch typ {
		case p.TypeMap.T_WALL_CLOCK_SAMPLE:
			add(p.WallClockSample.StackTrace, max(int64(p.WallClockSample.Samples), 1))
		case p.TypeMap.T_EXECUTION_SAMPLE:
			add(p.ExecutionSample.StackTrace, 1)
		}
	}

	if len(counts) == 0 {
		return "", fmt.Errorf("no stack samples in profiling data")
	}
	return renderCollapsed(counts), nil
}

// stackString - root 프레임부터 ';'로 연결 (JFR 스택은 leaf부터 저장됨)
func stackString(p *parser.Parser, ref types.StackTraceRef) string {
	st := p.GetStacktrace(ref)
	if st == nil || len(st.Frames) == 0 {
		return ""
	}
	names := make([]string, 0, len(st.Frames))
	for i := len(st.Frames) - 1; i >= 0; i-- {
		names = append(names, frameName(p, st.Frames[i]))
	}
	return strings.Join(names, ";")
}

func frameName(p *parser.Parser, frame types.StackFrame) string {
	method := p.GetMethod(frame.Method)
	if method == nil {
		return "[unknown]"
	}
	name := p.GetSymbolString(method.Name)
	if clz := p.GetClass(method.Type); clz != nil {
		if className := p.GetSymbolString(clz.Name); className != "" {
			return className + "." + name
		}
	}
	return name
}

// renderCollapsed - 샘플 수 내림차순, 같으면 스택 문자열 오름차순
func renderCollapsed(counts map[string]int64) string {
	stacks := make([]string, 0, len(counts))
	for s := range counts {
		stacks = append(stacks, s)
	}
	sort.Slice(stacks, func(i, j int) bool {
		if counts[stacks[i]] != counts[stacks[j]] {
			return counts[stacks[i]] > counts[stacks[j]]
		}
		return stacks[i] < stacks[j]
	})

	var sb strings.Builder
	for _, s := range stacks {
		sb.WriteString(s)
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatInt(counts[s], 10))
		sb.WriteByte('\n')
	}
	return sb.String()
}
