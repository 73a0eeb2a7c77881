package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashingDimensions 是 hashing 模型的默认向量维度。
const DefaultHashingDimensions = 256

var hashingTokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashingModel 使用特征哈希 (feature hashing) 在本地生成嵌入向量。
// 相同的文本总是得到相同的向量，适合离线运行和测试。
type HashingModel struct {
	dimensions int
}

// NewHashingModel 创建一个 HashingModel，维度不大于 0 时使用默认值。
func NewHashingModel(dimensions int) *HashingModel {
	if dimensions <= 0 {
		dimensions = DefaultHashingDimensions
	}
	return &HashingModel{dimensions: dimensions}
}

// Dimensions 返回向量维度。
func (m *HashingModel) Dimensions() int { return m.dimensions }

// Embed 为单个文本生成 L2 归一化的嵌入向量。没有任何词元的文本得到零向量。
func (m *HashingModel) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acc := make([]float64, m.dimensions)
	for _, tok := range hashingTokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()

		// 低位选桶，最高位决定符号，减少碰撞带来的偏差。
		bucket := int(sum % uint64(m.dimensions))
		if sum>>63 == 1 {
			acc[bucket]--
		} else {
			acc[bucket]++
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, m.dimensions)
	if norm == 0 {
		return vec, nil
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

// EmbedBatch 为一批文本逐个生成嵌入向量。
func (m *HashingModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
