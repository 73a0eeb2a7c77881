package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	model: 要使用的 Gemini 模型名称，为空时使用 gemini-1.5-flash。
//	apiKey: Gemini API 密钥。
//	temperature: 采样温度，0 表示使用模型默认值。
func NewGemini(ctx context.Context, model, apiKey string, temperature float32) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model, temperature: temperature}, nil
}

// Close 关闭底层客户端。
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Complete 发送一次无状态的生成请求。
// 每次调用都创建新的 GenerativeModel，因为系统提示是按请求设置的。
func (g *Gemini) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	if g.temperature > 0 {
		m.SetTemperature(g.temperature)
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userMessage))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return fromGenaiResponse(resp)
}

// fromGenaiResponse 取第一个候选的全部文本部分。
func fromGenaiResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini response was empty")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}
