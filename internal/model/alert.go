// Alertmanager 웹훅 페이로드와 분석 대상 파드 알림을 정의
// handler, service 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import (
	"net"
	"strings"
	"time"
)

// AlertmanagerWebhook - Alertmanager 웹훅 페이로드
// 여러 개의 알림이 그룹으로 묶여서 전송 가능
type AlertmanagerWebhook struct {
	Version  string `json:"version"`
	GroupKey string `json:"groupKey"`

	// max_alerts 설정으로 인해 생략된 알림이 있을 경우 그 개수
	TruncatedAlerts int    `json:"truncatedAlerts"`
	Status          string `json:"status"`
	Receiver        string `json:"receiver"`

	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`

	Alerts []Alert `json:"alerts"`
}

// Alert - 개별 알림
type Alert struct {
	Status string `json:"status"`

	// 분석에 사용하는 라벨
	// - pod: 대상 파드 이름
	// - instance: "<podIP>:<port>" (Prometheus scrape target)
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`

	StartsAt     time.Time `json:"startsAt"`
	EndsAt       time.Time `json:"endsAt"`
	GeneratorURL string    `json:"generatorURL"`
	Fingerprint  string    `json:"fingerprint"`
}

// PodAlert - 분석 파이프라인 입력 (파드 이름 + 파드 IP)
type PodAlert struct {
	Pod   string
	PodIP string
}

// Valid - 파드 이름과 IP가 모두 있어야 분석 가능
func (a PodAlert) Valid() bool {
	return strings.TrimSpace(a.Pod) != "" && strings.TrimSpace(a.PodIP) != ""
}

// ToPodAlert - labels.pod, labels.instance에서 PodAlert 추출
// instance의 포트를 떼어낸 호스트 부분을 파드 IP로 사용한다.
func (a Alert) ToPodAlert() (PodAlert, bool) {
	pod := strings.TrimSpace(a.Labels["pod"])
	ip := InstanceHost(a.Labels["instance"])
	pa := PodAlert{Pod: pod, PodIP: ip}
	return pa, pa.Valid()
}

// InstanceHost - "10.0.0.1:8080" -> "10.0.0.1", 포트가 없으면 그대로
func InstanceHost(instance string) string {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(instance); err == nil {
		return host
	}
	// 포트 없는 값 또는 "host:" 형태
	host, _, _ := strings.Cut(instance, ":")
	return host
}

// PodAlerts - 웹훅 페이로드에서 분석 가능한 알림만 골라낸다. dropped는 버려진 개수.
func (w AlertmanagerWebhook) PodAlerts() (alerts []PodAlert, dropped int) {
	for _, a := range w.Alerts {
		pa, ok := a.ToPodAlert()
		if !ok {
			dropped++
			continue
		}
		alerts = append(alerts, pa)
	}
	return alerts, dropped
}
