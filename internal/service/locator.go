// 파드별 최신 프로파일링(JFR) 파일 조회
//
// 키 형식: <profilingPrefix><pod>/profile-<yyyyMMdd>-<HHmmss>.jfr
// 자정을 넘겨 발생한 알림을 위해 오늘/어제 두 날짜만 검색한다.

package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/kube-rca/jvm-analyzer/internal/model"
	"github.com/kube-rca/jvm-analyzer/internal/storage"
)

const datetimeLayout = "20060102-150405"

var profileKeyPattern = regexp.MustCompile(`profile-(\d{8}-\d{6})\.jfr$`)

type ProfilingLocator struct {
	store  storage.ObjectStore
	prefix string
	now    func() time.Time
}

func NewProfilingLocator(store storage.ObjectStore, prefix string) *ProfilingLocator {
	if prefix == "" {
		prefix = "profiling/"
	}
	return &ProfilingLocator{store: store, prefix: prefix, now: time.Now}
}

// Latest - 오늘/어제 중 가장 최근 JFR. 없으면 (nil, nil)
func (l *ProfilingLocator) Latest(ctx context.Context, pod string) (*model.ProfilingArtifact, error) {
	now := l.now()
	latest := ""
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		prefix := fmt.Sprintf("%s%s/profile-%s", l.prefix, pod, day.Format("20060102"))
		keys, err := l.store.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, key := range keys {
			// 타임스탬프가 고정 폭이므로 문자열 비교 = 시간 비교
			if strings.HasSuffix(key, ".jfr") && key > latest {
				latest = key
			}
		}
	}
	if latest == "" {
		log.Printf("[Locator] No profiling data for pod=%s", pod)
		return nil, nil
	}

	data, err := l.store.Get(ctx, latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", latest, err)
	}
	log.Printf("[Locator] Found %s (%d bytes) for pod=%s", latest, len(data), pod)

	return &model.ProfilingArtifact{
		Data:     data,
		Key:      latest,
		Datetime: ExtractDatetime(latest, now),
	}, nil
}

// ExtractDatetime - 키의 yyyyMMdd-HHmmss. 패턴이 없으면 now
func ExtractDatetime(key string, now time.Time) string {
	if m := profileKeyPattern.FindStringSubmatch(key); m != nil {
		return m[1]
	}
	return now.Format(datetimeLayout)
}
