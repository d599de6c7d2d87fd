// 대상 JVM 파드의 thread dump를 HTTP로 가져오는 클라이언트
//
// 기본 URL: http://{podIp}:8080/actuator/threaddump (Spring Boot actuator)
// 실패해도 에러를 올리지 않고 실패 메시지를 본문 대신 반환한다.

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kube-rca/jvm-analyzer/internal/config"
)

const (
	threadDumpConnectTimeout = 5 * time.Second
	threadDumpReadTimeout    = 30 * time.Second

	// ThreadDumpFailurePrefix - 실패 시 반환 문자열의 접두어
	ThreadDumpFailurePrefix = "Failed to retrieve thread dump: "
)

var errThreadDumpReadTimeout = errors.New("no data received within read timeout")

type ThreadDumpClient struct {
	urlTemplate string
	httpClient  *http.Client
	// 본문 읽기 idle timeout. 전체 전송 시간은 제한하지 않는다
	readTimeout time.Duration
}

func NewThreadDumpClient(cfg config.ThreadDumpConfig) *ThreadDumpClient {
	tmpl := cfg.URLTemplate
	if tmpl == "" {
		tmpl = "http://{podIp}:8080/actuator/threaddump"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: threadDumpConnectTimeout}).DialContext
	transport.ResponseHeaderTimeout = threadDumpReadTimeout

	return &ThreadDumpClient{
		urlTemplate: tmpl,
		httpClient:  &http.Client{Transport: transport},
		readTimeout: threadDumpReadTimeout,
	}
}

// URL - 템플릿의 {podIp}를 치환한 요청 URL
func (c *ThreadDumpClient) URL(podIP string) string {
	return strings.ReplaceAll(c.urlTemplate, "{podIp}", podIP)
}

// Fetch - thread dump 본문. 실패 시 "Failed to retrieve thread dump: <error>"
func (c *ThreadDumpClient) Fetch(ctx context.Context, podIP string) string {
	body, err := c.fetch(ctx, podIP)
	if err != nil {
		log.Printf("[ThreadDump] Failed to get thread dump for pod IP %s: %v", podIP, err)
		return ThreadDumpFailurePrefix + err.Error()
	}
	log.Printf("[ThreadDump] Retrieved %d bytes from %s", len(body), podIP)
	return body
}

func (c *ThreadDumpClient) fetch(ctx context.Context, podIP string) (string, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(podIP), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// 읽을 때마다 타이머를 다시 건다
	timer := time.AfterFunc(c.readTimeout, func() { cancel(errThreadDumpReadTimeout) })
	defer timer.Stop()

	body, err := io.ReadAll(&idleReader{r: resp.Body, timer: timer, timeout: c.readTimeout})
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, errThreadDumpReadTimeout) {
			err = cause
		}
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return string(body), nil
}

type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.timeout)
	}
	return n, err
}
