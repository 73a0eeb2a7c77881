package kafka

import (
	"DocQA/backend/go/internal/config"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"DocQA/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// KafkaClient 持有会话事件主题的 writer 和一个用于管理的连接。
type KafkaClient struct {
	Writer *kafka.Writer
	Conn   *kafka.Conn // 用于管理的连接
	Config *config.KafkaConfig
}

// NewClient 连接到 Kafka，按需创建事件主题，并返回一个 KafkaClient。
func NewClient(cfg *config.KafkaConfig, log *logger.Logger) (*KafkaClient, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("未配置 Kafka brokers")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("未配置 Kafka topic")
	}

	// 1. 建立管理连接
	dialer := &kafka.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka 初始化连接失败: %w", err)
	}

	// 2. 主题不存在时创建
	if cfg.AutoCreateTopic {
		if err := ensureTopic(conn, cfg.Topic, log); err != nil {
			conn.Close()
			return nil, err
		}
	}

	// 3. 创建用于生产的 Writer
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // 同一会话的事件落在同一分区，保证顺序
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	log.Info(fmt.Sprintf("成功初始化 Kafka 客户端, topic=%s", cfg.Topic))
	return &KafkaClient{Writer: writer, Conn: conn, Config: cfg}, nil
}

func ensureTopic(conn *kafka.Conn, topic string, log *logger.Logger) error {
	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	for _, p := range partitions {
		if p.Topic == topic {
			return nil
		}
	}

	log.Info(fmt.Sprintf("主题 '%s' 不存在，准备创建...", topic))
	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	return nil
}

// Close 安全地关闭 Kafka 连接。
func (c *KafkaClient) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Writer != nil {
		if err := c.Writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭 Kafka writer 失败: %w", err))
		}
	}
	if c.Conn != nil {
		if err := c.Conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭 Kafka 管理连接失败: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("关闭 Kafka 客户端时发生多个错误: %v", errs)
	}
	return nil
}

// HealthCheck 检查 Kafka 连接的健康状况。
func (c *KafkaClient) HealthCheck(ctx context.Context) error {
	if c == nil || c.Conn == nil {
		return fmt.Errorf("kafka 客户端未初始化，无法进行健康检查")
	}
	_, err := c.Conn.Controller()
	return err
}

// GetControllerInfo 返回 Kafka 控制器的信息。
func (c *KafkaClient) GetControllerInfo() (string, error) {
	if c == nil || c.Conn == nil {
		return "", fmt.Errorf("kafka 客户端未初始化")
	}
	controller, err := c.Conn.Controller()
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)), nil
}
