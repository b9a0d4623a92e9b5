package domain

import "context"

// EventPublisher 事件发布者接口
type EventPublisher interface {
	// Publish 独立于业务事务发布事件
	Publish(ctx context.Context, eventType, key string, event any) error
	// PublishInTx 在 ctx 携带的事务内写入事件，随事务一起提交
	PublishInTx(ctx context.Context, eventType, key string, event any) error
}
