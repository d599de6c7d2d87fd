package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/kube-rca/jvm-analyzer/internal/config"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiChat struct {
	client    *genai.Client
	model     string
	maxTokens int32
	source    SourceLookup
}

func NewGeminiChat(ctx context.Context, cfg config.AIConfig, source SourceLookup) (*GeminiChat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiChat{client: client, model: model, maxTokens: int32(cfg.MaxTokens), source: source}, nil
}

func (c *GeminiChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	gc := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   c.maxTokens,
	}
	if c.source != nil {
		gc.Tools = []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{geminiSourceTool()}}}
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	for round := 0; ; round++ {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, gc)
		if err != nil {
			return "", fmt.Errorf("gemini generate content: %w", err)
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 || c.source == nil || round >= maxToolRounds || len(resp.Candidates) == 0 {
			text := resp.Text()
			if strings.TrimSpace(text) == "" {
				return "", ErrEmptyResponse
			}
			return text, nil
		}

		// 모델의 function call 턴과 도구 결과 턴을 대화에 이어 붙인다
		contents = append(contents, resp.Candidates[0].Content)
		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			path, _ := call.Args[sourceToolPathArg].(string)
			result := c.source.FetchSource(ctx, path)
			parts = append(parts, genai.NewPartFromFunctionResponse(call.Name, map[string]any{"content": result}))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}
}

func geminiSourceTool() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        sourceToolName,
		Description: sourceToolDescription,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				sourceToolPathArg: {
					Type:        genai.TypeString,
					Description: "File path relative to the application root",
				},
			},
			Required: []string{sourceToolPathArg},
		},
	}
}
