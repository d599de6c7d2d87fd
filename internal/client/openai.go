package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kube-rca/jvm-analyzer/internal/config"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAIChat struct {
	client    *openai.Client
	model     string
	maxTokens int
	source    SourceLookup
}

func NewOpenAIChat(cfg config.AIConfig, source SourceLookup) (*OpenAIChat, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	return newOpenAIChatWithConfig(openai.DefaultConfig(cfg.OpenAIAPIKey), cfg, source), nil
}

func newOpenAIChatWithConfig(clientCfg openai.ClientConfig, cfg config.AIConfig, source SourceLookup) *OpenAIChat {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIChat{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: cfg.MaxTokens,
		source:    source,
	}
}

func (c *OpenAIChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: c.maxTokens,
	}
	if c.source != nil {
		req.Tools = []openai.Tool{openAISourceTool()}
	}

	for round := 0; ; round++ {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("OpenAI API call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("OpenAI returned no choices")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 || c.source == nil || round >= maxToolRounds {
			if strings.TrimSpace(msg.Content) == "" {
				return "", ErrEmptyResponse
			}
			return msg.Content, nil
		}

		req.Messages = append(req.Messages, msg)
		for _, call := range msg.ToolCalls {
			var args map[string]string
			_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
			req.Messages = append(req.Messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    c.source.FetchSource(ctx, args[sourceToolPathArg]),
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}
}

func openAISourceTool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        sourceToolName,
			Description: sourceToolDescription,
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					sourceToolPathArg: {
						Type:        jsonschema.String,
						Description: "File path relative to the application root",
					},
				},
				Required: []string{sourceToolPathArg},
			},
		},
	}
}
