package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventType 是会话生命周期事件的类型。
type EventType string

const (
	SessionCreated EventType = "session.created"
	SessionDeleted EventType = "session.deleted"
	SessionEvicted EventType = "session.evicted"
)

// SessionEvent 描述一次会话状态变化。不包含任何文档内容。
type SessionEvent struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	FileName   string    `json:"file_name,omitempty"`
	Format     string    `json:"format,omitempty"`
	ChunkCount int       `json:"chunk_count,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher 发布会话事件。
type Publisher interface {
	Publish(ctx context.Context, event SessionEvent) error
	Close() error
}

// messageWriter 是 *kafka.Writer 中被用到的部分。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher 封装了向 Kafka 发送会话事件的逻辑。
type EventPublisher struct {
	writer messageWriter
}

// NewEventPublisher 创建一个新的 EventPublisher 实例。
func NewEventPublisher(client *KafkaClient) *EventPublisher {
	return &EventPublisher{writer: client.Writer}
}

// Publish 将事件序列化为 JSON 并发送到 Kafka，key 为会话 ID。
func (p *EventPublisher) Publish(ctx context.Context, event SessionEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: jsonData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close 关闭底层的 writer 连接。
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher 在未配置 Kafka 时使用，丢弃所有事件。
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, SessionEvent) error { return nil }
func (NoopPublisher) Close() error                                { return nil }

var (
	_ Publisher = (*EventPublisher)(nil)
	_ Publisher = NoopPublisher{}
)
