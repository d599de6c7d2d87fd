// Package template provides webhook body template rendering.
//
// 지원하는 변수 형식:
//
//	{{report.run_id}}, {{report.pod}}, {{report.pod_ip}}, {{report.datetime}},
//	{{report.source}}, {{report.key}}, {{report.text}}, {{report.summary}},
//	{{report.created_at}}
package template

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kube-rca/jvm-analyzer/internal/model"
)

// {{report.summary}}에 들어가는 보고서 앞부분 길이 (rune)
const summaryRunes = 500

// ReportData - 템플릿 렌더링에 사용할 보고서 데이터
type ReportData struct {
	RunID     string
	Pod       string
	PodIP     string
	Datetime  string
	Source    string
	Key       string
	Text      string
	CreatedAt time.Time
}

// ReportDataFromNotification - model.ReportNotification에서 ReportData 생성
func ReportDataFromNotification(n model.ReportNotification, now time.Time) ReportData {
	return ReportData{
		RunID:     n.RunID,
		Pod:       n.Pod,
		PodIP:     n.PodIP,
		Datetime:  n.Datetime,
		Source:    n.Source,
		Key:       n.ReportKey,
		Text:      n.Report,
		CreatedAt: now,
	}
}

// RenderBody - webhook body 템플릿의 변수를 실제 값으로 치환
//
// escapeJSON이면 값을 JSON 문자열 내부에 넣을 수 있도록 이스케이프한다
// (따옴표는 붙이지 않음). report가 nil이면 모든 변수를 빈 문자열로 치환한다.
func RenderBody(body string, report *ReportData, escapeJSON bool) string {
	var d ReportData
	createdAt := ""
	if report != nil {
		d = *report
		if !d.CreatedAt.IsZero() {
			createdAt = d.CreatedAt.Format(time.RFC3339)
		}
	}

	esc := func(s string) string { return s }
	if escapeJSON {
		esc = jsonEscape
	}

	pairs := []string{
		"{{report.run_id}}", esc(d.RunID),
		"{{report.pod}}", esc(d.Pod),
		"{{report.pod_ip}}", esc(d.PodIP),
		"{{report.datetime}}", esc(d.Datetime),
		"{{report.source}}", esc(d.Source),
		"{{report.key}}", esc(d.Key),
		"{{report.text}}", esc(d.Text),
		"{{report.summary}}", esc(summarize(d.Text)),
		"{{report.created_at}}", createdAt,
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

func summarize(text string) string {
	if utf8.RuneCountInString(text) <= summaryRunes {
		return text
	}
	return string([]rune(text)[:summaryRunes]) + "..."
}

// jsonEscape - JSON 문자열 리터럴 내부 표현 (양끝 따옴표 제외)
func jsonEscape(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b[1 : len(b)-1])
}
