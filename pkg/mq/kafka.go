// Package mq 提供 Kafka 生产者与死信投递
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/lsmpricing/pkg/config"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
)

// MessageWriter kafka.Writer 的最小接口
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message 待投递消息
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// KafkaProducer Kafka 生产者
type KafkaProducer struct {
	writer MessageWriter
}

// NewProducer 创建 Kafka 生产者
func NewProducer(cfg config.KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           time.Duration(cfg.WriteTimeout) * time.Second,
	}
	logger.Info(context.Background(), "Kafka producer created successfully", "brokers", cfg.Brokers)
	return NewProducerWithWriter(writer)
}

// NewProducerWithWriter 使用自定义 writer 创建生产者
func NewProducerWithWriter(w MessageWriter) *KafkaProducer {
	return &KafkaProducer{writer: w}
}

// SendMessage 以 JSON 发送单条消息
func (kp *KafkaProducer) SendMessage(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return kp.Send(ctx, Message{Topic: topic, Key: key, Value: data})
}

// Send 发送已序列化的消息
func (kp *KafkaProducer) Send(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		out[i] = kafka.Message{Topic: m.Topic, Key: []byte(m.Key), Value: m.Value}
		for k, v := range m.Headers {
			out[i].Headers = append(out[i].Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}

	if err := kp.writer.WriteMessages(ctx, out...); err != nil {
		logger.Error(ctx, "Failed to send Kafka messages", "count", len(out), "topic", msgs[0].Topic, "error", err)
		return err
	}
	logger.Debug(ctx, "Kafka messages sent", "count", len(out), "topic", msgs[0].Topic)
	return nil
}

// Close 关闭生产者
func (kp *KafkaProducer) Close() error {
	return kp.writer.Close()
}

// DeadLetterQueue 死信队列
type DeadLetterQueue struct {
	producer *KafkaProducer
	topic    string
}

// NewDeadLetterQueue 创建死信队列
func NewDeadLetterQueue(producer *KafkaProducer, topic string) *DeadLetterQueue {
	return &DeadLetterQueue{producer: producer, topic: topic}
}

// Topic 死信主题
func (dlq *DeadLetterQueue) Topic() string { return dlq.topic }

// Send 把投递失败的消息连同失败原因写入死信主题
func (dlq *DeadLetterQueue) Send(ctx context.Context, original Message, reason error) error {
	return dlq.producer.SendMessage(ctx, dlq.topic, original.Key, map[string]any{
		"original_topic":    original.Topic,
		"original_key":      original.Key,
		"original_value":    json.RawMessage(original.Value),
		"failure_error":     reason.Error(),
		"failure_timestamp": time.Now(),
	})
}
