package embedding

import (
	"fmt"
)

// NewEmdModel 根据配置中的提供商创建并返回一个新的 Embedding 模型实例。
//
// 参数:
//
//	cfg: 提供商、模型名称、API 密钥、基础 URL 以及向量维度 (仅 hashing 和 openai 使用)。
//
// 返回值:
//
//	Embedding: 新创建的 Embedding 模型实例。
//	error: 如果提供商不支持或模型初始化失败，则返回错误。
func NewEmdModel(cfg Config) (Embedding, error) {
	switch cfg.Provider {
	case Hashing, "":
		return NewHashingModel(cfg.Dimensions), nil
	case Google, "google":
		return NewGoogleModel(cfg.APIKey, cfg.Model)
	case OpenAI:
		return NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimensions)
	case HuggingFace:
		return NewHuggingFaceModel(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case Ollama:
		return NewOllamaModel(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider) // 如果提供商不支持，返回错误。
	}
}
