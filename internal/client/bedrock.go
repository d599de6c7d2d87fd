package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/kube-rca/jvm-analyzer/internal/config"
)

const bedrockAnthropicVersion = "bedrock-2023-05-31"

// BedrockAPI - InvokeModel만 사용 (테스트에서 대체)
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockChat - Anthropic 모델을 Bedrock InvokeModel로 호출
// 소스 코드 조회 도구는 지원하지 않는다.
type BedrockChat struct {
	client    BedrockAPI
	modelID   string
	maxTokens int
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func NewBedrockChat(ctx context.Context, cfg config.AIConfig, region string) (*BedrockChat, error) {
	if cfg.BedrockModelID == "" {
		return nil, fmt.Errorf("bedrock: BEDROCK_MODEL_ID must not be empty")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: loading AWS config: %w", err)
	}
	return NewBedrockChatWithClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID, cfg.MaxTokens), nil
}

func NewBedrockChatWithClient(client BedrockAPI, modelID string, maxTokens int) *BedrockChat {
	if maxTokens <= 0 {
		maxTokens = 10000
	}
	return &BedrockChat{client: client, modelID: modelID, maxTokens: maxTokens}
}

func (c *BedrockChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        c.maxTokens,
		System:           system,
		Messages:         []bedrockMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshaling request: %w", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoking model: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: parsing response JSON: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
