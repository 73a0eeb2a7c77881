package llm

import (
	"context"
	"fmt"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
type LLM interface {
	// Complete 以系统提示和用户消息调用模型，返回完整的文本回复。
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Config 描述如何创建一个 LLM 客户端。
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
// provider 为 "none" 或空时返回 nil, nil，表示服务不提供答案生成。
func NewClient(cfg Config) (LLM, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "gemini":
		return NewGemini(context.Background(), cfg.Model, cfg.APIKey, cfg.Temperature)
	case "openai":
		return NewOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL)
	case "ollama":
		return NewOllama(cfg.Model, cfg.BaseURL, cfg.Temperature)
	case "huggingface":
		return NewHuggingFace(cfg.Model, cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
