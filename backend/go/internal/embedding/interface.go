package embedding

import "context"

// Embedding 定义了所有 embedding 模型需要实现的接口。
type Embedding interface {
	// Embed 为单个文本生成嵌入向量。
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch 为一批文本生成嵌入向量。
	// 返回的向量与输入文本一一对应，顺序一致。
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelType 是一个枚举类型，用于表示不同的模型厂商。
type ModelType string

const (
	Hashing     ModelType = "hashing"     // 本地特征哈希，无需外部服务。
	OpenAI      ModelType = "openai"      // OpenAI 兼容接口。
	Google      ModelType = "gemini"      // Google Gemini。
	Ollama      ModelType = "ollama"      // 本地 Ollama 服务。
	HuggingFace ModelType = "huggingface" // HuggingFace Inference API。
)

// Config 描述如何创建一个 Embedding 模型。
type Config struct {
	Provider   ModelType
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}
