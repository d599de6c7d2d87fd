// 외부 Slack API와 통신하는 클라이언트 정의
//
// 환경변수:
//   - SLACK_BOT_TOKEN: Slack Bot Token (xoxb-...)
//   - SLACK_CHANNEL_ID: Slack 채널 ID (C...)
//
// 분석이 끝나면 보고서 요약을 채널로 전송한다 (slack_report.go).

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/kube-rca/jvm-analyzer/internal/config"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

type SlackClient struct {
	botToken   string
	channelID  string
	endpoint   string
	httpClient *http.Client
}

type SlackMessage struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
	ThreadTS    string            `json:"thread_ts,omitempty"`
}

type SlackAttachment struct {
	Color      string       `json:"color"`
	Title      string       `json:"title"`
	Text       string       `json:"text"`
	Footer     string       `json:"footer,omitempty"`
	FooterIcon string       `json:"footer_icon,omitempty"`
	Ts         int64        `json:"ts,omitempty"`
	Fields     []SlackField `json:"fields,omitempty"`
	MrkdwnIn   []string     `json:"mrkdwn_in,omitempty"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"` // true면 한 줄에 2개
}

type SlackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

func NewSlackClient(cfg config.SlackConfig) *SlackClient {
	return &SlackClient{
		botToken:  cfg.BotToken,
		channelID: cfg.ChannelID,
		endpoint:  slackPostMessageURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Bot Token과 Channel ID가 모두 설정되어 있는지 체크
func (c *SlackClient) IsConfigured() bool {
	return c.botToken != "" && c.channelID != ""
}

// Slack API 호출
func (c *SlackClient) send(ctx context.Context, msg SlackMessage) (*SlackResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var slackResp SlackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !slackResp.OK {
		return nil, fmt.Errorf("slack API error: %s", slackResp.Error)
	}
	return &slackResp, nil
}

var (
	slackBoldPattern    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	slackHeadingPattern = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
)

// toSlackMarkdown - 모델이 만든 markdown을 Slack mrkdwn으로 변환
// **bold** -> *bold*, "### 제목" -> *제목*. 코드 블록과 인라인 코드는 그대로 둔다.
func toSlackMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		if m := slackHeadingPattern.FindStringSubmatch(line); m != nil {
			heading := strings.ReplaceAll(convertInline(m[1]), "*", "")
			lines[i] = "*" + heading + "*"
			continue
		}
		lines[i] = convertInline(line)
	}
	return strings.Join(lines, "\n")
}

// convertInline - 백틱 밖의 **bold**만 변환
func convertInline(line string) string {
	segments := strings.Split(line, "`")
	for i := 0; i < len(segments); i += 2 {
		segments[i] = slackBoldPattern.ReplaceAllString(segments[i], "*$1*")
	}
	return strings.Join(segments, "`")
}
