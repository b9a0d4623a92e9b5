// Package messaging 基于发件箱表的事件发布与 Kafka 中继
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/lsmpricing/pkg/db"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusDead    = "dead"
)

// OutboxMessage 发件箱记录
type OutboxMessage struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	EventType  string    `gorm:"type:varchar(100);index"`
	Topic      string    `gorm:"type:varchar(128)"`
	MessageKey string    `gorm:"type:varchar(128)"`
	Payload    string    `gorm:"type:text"`
	Status     string    `gorm:"type:varchar(20);index:idx_outbox_status_created,priority:1;default:'pending'"`
	Attempts   int       `gorm:"default:0"`
	LastError  string    `gorm:"type:varchar(512)"`
	CreatedAt  time.Time `gorm:"index:idx_outbox_status_created,priority:2"`
	UpdatedAt  time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "pricing_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher，事件先落表再由 OutboxRelay 投递
type OutboxEventPublisher struct {
	db    *db.DB
	topic string
}

// NewOutboxEventPublisher 创建发布者，所有事件写往同一主题
func NewOutboxEventPublisher(database *db.DB, topic string) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: database, topic: topic}
}

// Publish 使用独立连接写入，不加入 ctx 中的事务
func (p *OutboxEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	msg, err := p.newMessage(eventType, key, event)
	if err != nil {
		return err
	}
	return p.db.DB.WithContext(ctx).Create(msg).Error
}

// PublishInTx 与 ctx 中的业务事务一起提交
func (p *OutboxEventPublisher) PublishInTx(ctx context.Context, eventType, key string, event any) error {
	msg, err := p.newMessage(eventType, key, event)
	if err != nil {
		return err
	}
	return p.db.Conn(ctx).Create(msg).Error
}

func (p *OutboxEventPublisher) newMessage(eventType, key string, event any) (*OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	now := time.Now()
	return &OutboxMessage{
		ID:         uuid.NewString(),
		EventType:  eventType,
		Topic:      p.topic,
		MessageKey: key,
		Payload:    string(payload),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
