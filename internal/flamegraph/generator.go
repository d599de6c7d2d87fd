// Flamegraph 생성
//
// async-profiler 변환기(jfrconv)로 JFR을 HTML flamegraph / collapsed stacks로 변환한다.
// 변환기가 없거나 실패하면 collapsed stacks는 grafana/jfr-parser 기반 Collapser가 대신 만든다.

package flamegraph

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Generator - JFR -> flamegraph 변환기
type Generator interface {
	ToHTML(ctx context.Context, raw []byte, include string) (string, error)
	ToCollapsed(ctx context.Context, raw []byte) (string, error)
}

// CollapsedSource - collapsed stacks만 만들 수 있는 변환기
type CollapsedSource interface {
	ToCollapsed(ctx context.Context, raw []byte) (string, error)
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Converter - 외부 jfrconv 바이너리를 호출하는 Generator
type Converter struct {
	binary string
	run    commandRunner
}

func NewConverter(binary string) *Converter {
	if strings.TrimSpace(binary) == "" {
		binary = "jfrconv"
	}
	return &Converter{binary: binary, run: runCommand}
}

// Available - 변환기 바이너리가 PATH에 있는지
func (c *Converter) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// ToHTML - wall-clock, inverted HTML flamegraph
// include가 있으면 매칭되는 프레임만 남긴다 (예: "*unicorn*").
func (c *Converter) ToHTML(ctx context.Context, raw []byte, include string) (string, error) {
	args := []string{"--wall", "--inverted"}
	if strings.TrimSpace(include) != "" {
		args = append(args, "--include", include)
	}
	html, err := c.convert(ctx, raw, "flamegraph.html", args...)
	if err != nil {
		return "", err
	}
	log.Printf("[Flamegraph] Generated HTML: %d bytes (include=%q)", len(html), include)
	return html, nil
}

// ToCollapsed - 고유 스택마다 한 줄 ("frame;frame;frame count")
func (c *Converter) ToCollapsed(ctx context.Context, raw []byte) (string, error) {
	collapsed, err := c.convert(ctx, raw, "collapsed.txt", "--wall", "-o", "collapsed")
	if err != nil {
		return "", err
	}
	log.Printf("[Flamegraph] Generated collapsed stacks: %d bytes", len(collapsed))
	return collapsed, nil
}

// convert - 임시 디렉터리에 입력을 쓰고 변환기를 실행한 뒤 출력을 읽는다.
// 임시 파일은 성공/실패와 관계없이 삭제된다.
func (c *Converter) convert(ctx context.Context, raw []byte, outName string, args ...string) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty profiling data")
	}

	dir, err := os.MkdirTemp("", "flamegraph-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "profile.jfr")
	output := filepath.Join(dir, outName)
	if err := os.WriteFile(input, raw, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp jfr: %w", err)
	}

	args = append(args, input, output)
	if out, err := c.run(ctx, c.binary, args...); err != nil {
		return "", fmt.Errorf("%s failed: %w (output: %s)", c.binary, err, strings.TrimSpace(string(out)))
	}

	body, err := os.ReadFile(output)
	if err != nil {
		return "", fmt.Errorf("converter produced no output: %w", err)
	}
	return string(body), nil
}

// Fallback - HTML은 Primary, collapsed는 Primary 실패 시 Secondary로 만든다.
type Fallback struct {
	Primary   Generator
	Secondary CollapsedSource
}

func (f *Fallback) ToHTML(ctx context.Context, raw []byte, include string) (string, error) {
	return f.Primary.ToHTML(ctx, raw, include)
}

func (f *Fallback) ToCollapsed(ctx context.Context, raw []byte) (string, error) {
	collapsed, err := f.Primary.ToCollapsed(ctx, raw)
	if err == nil || f.Secondary == nil {
		return collapsed, err
	}
	log.Printf("[Flamegraph] Converter failed, using in-process collapser: %v", err)
	return f.Secondary.ToCollapsed(ctx, raw)
}
