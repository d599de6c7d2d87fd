// 오브젝트 스토어 추상화
//
// 프로파일링 JFR을 읽고 분석 결과물을 쓰는 데 필요한 최소 연산만 둔다.
// 구현: S3(aws-sdk-go-v2), GCS(cloud.google.com/go/storage)

package storage

import (
	"context"
	"errors"
)

// ErrNotFound - 키에 해당하는 객체가 없음
var ErrNotFound = errors.New("object not found")

// ObjectStore - 버킷 하나에 대한 key/value 접근
type ObjectStore interface {
	// List - prefix로 시작하는 모든 키 (순서 보장 없음)
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
