// 분석 결과물 저장
//
// 키 형식: <analysisPrefix><datetime>_<kind>_<pod>.<ext>
// 다섯 객체는 서로 독립적으로 저장한다. 하나가 실패해도 나머지는 계속 쓴다.

package service

import (
	"context"
	"fmt"
	"log"

	"github.com/kube-rca/jvm-analyzer/internal/metrics"
	"github.com/kube-rca/jvm-analyzer/internal/storage"
)

// ArtifactSet - 파드 1회 분석의 결과물
type ArtifactSet struct {
	Pod              string
	Datetime         string
	JFR              []byte
	ProfilingSummary string
	ThreadDump       string
	FlamegraphHTML   string
	Analysis         string
}

type artifact struct {
	kind        string
	ext         string
	contentType string
	body        []byte
}

type ArtifactStore struct {
	store  storage.ObjectStore
	prefix string
}

func NewArtifactStore(store storage.ObjectStore, prefix string) *ArtifactStore {
	if prefix == "" {
		prefix = "analysis/"
	}
	return &ArtifactStore{store: store, prefix: prefix}
}

// Key - 결과물 객체 키
func (s *ArtifactStore) Key(datetime, kind, pod, ext string) string {
	return fmt.Sprintf("%s%s_%s_%s.%s", s.prefix, datetime, kind, pod, ext)
}

// Store - 저장된 키 목록과 실패 개수. 에러는 로그로만 남긴다
func (s *ArtifactStore) Store(ctx context.Context, set ArtifactSet) (keys []string, failures int) {
	artifacts := []artifact{
		{"profiling", "jfr", "application/octet-stream", set.JFR},
		{"profiling", "md", "text/markdown; charset=utf-8", []byte(set.ProfilingSummary)},
		{"threaddump", "json", "application/json", []byte(set.ThreadDump)},
		{"flamegraph", "html", "text/html; charset=utf-8", []byte(set.FlamegraphHTML)},
		{"analysis", "md", "text/markdown; charset=utf-8", []byte(set.Analysis)},
	}

	for _, a := range artifacts {
		key := s.Key(set.Datetime, a.kind, set.Pod, a.ext)
		label := a.kind + "." + a.ext
		if err := s.store.Put(ctx, key, a.body, a.contentType); err != nil {
			log.Printf("[Artifacts] Failed to store %s: %v", key, err)
			metrics.ArtifactWritesTotal.WithLabelValues(label, "failed").Inc()
			failures++
			continue
		}
		metrics.ArtifactWritesTotal.WithLabelValues(label, "stored").Inc()
		keys = append(keys, key)
	}
	log.Printf("[Artifacts] Stored %d/%d artifacts for pod=%s datetime=%s", len(keys), len(artifacts), set.Pod, set.Datetime)
	return keys, failures
}
