package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/wyfcoding/lsmpricing/pkg/config"
	"github.com/wyfcoding/lsmpricing/pkg/db"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
	"github.com/wyfcoding/lsmpricing/pkg/metrics"
	"github.com/wyfcoding/lsmpricing/pkg/mq"
)

// OutboxRelay 轮询发件箱并投递到 Kafka
// 单条消息累计失败 MaxRetries 次后转入死信主题并标记为 dead。
type OutboxRelay struct {
	db       *db.DB
	producer *mq.KafkaProducer
	dlq      *mq.DeadLetterQueue
	metrics  *metrics.Metrics
	cfg      config.OutboxConfig

	sendAttempts int
	retryDelay   time.Duration
}

// NewOutboxRelay 创建中继，dlq 为 nil 时超限消息只标记不转发
func NewOutboxRelay(database *db.DB, producer *mq.KafkaProducer, dlq *mq.DeadLetterQueue, m *metrics.Metrics, cfg config.OutboxConfig) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2
	}
	return &OutboxRelay{
		db:           database,
		producer:     producer,
		dlq:          dlq,
		metrics:      m,
		cfg:          cfg,
		sendAttempts: 3,
		retryDelay:   100 * time.Millisecond,
	}
}

// ProcessOutboxMessages 投递一批待发送消息，返回成功条数
func (r *OutboxRelay) ProcessOutboxMessages(ctx context.Context) (int, error) {
	var messages []OutboxMessage
	if err := r.db.Conn(ctx).
		Where("status = ?", StatusPending).
		Order("created_at").
		Limit(r.cfg.BatchSize).
		Find(&messages).Error; err != nil {
		return 0, err
	}

	delivered, failed := 0, 0
	for i := range messages {
		m := &messages[i]
		msg := mq.Message{
			Topic:   m.Topic,
			Key:     m.MessageKey,
			Value:   []byte(m.Payload),
			Headers: map[string]string{"event_type": m.EventType, "event_id": m.ID},
		}
		sendErr := r.send(ctx, msg)
		if sendErr == nil {
			if err := r.mark(ctx, m.ID, map[string]any{"status": StatusSent}); err != nil {
				return delivered, err
			}
			delivered++
			continue
		}
		if errors.Is(sendErr, context.Canceled) || errors.Is(sendErr, context.DeadlineExceeded) {
			return delivered, sendErr
		}

		failed++
		attempts := m.Attempts + 1
		updates := map[string]any{"attempts": attempts, "last_error": truncate(sendErr.Error(), 512)}
		if attempts >= r.cfg.MaxRetries {
			updates["status"] = StatusDead
			if r.dlq != nil {
				if err := r.dlq.Send(ctx, msg, sendErr); err != nil {
					logger.Error(ctx, "Failed to move outbox message to DLQ", "id", m.ID, "topic", r.dlq.Topic(), "error", err)
				}
			}
			logger.Warn(ctx, "Outbox message exhausted retries", "id", m.ID, "event_type", m.EventType, "attempts", attempts)
		}
		if err := r.mark(ctx, m.ID, updates); err != nil {
			return delivered, err
		}
	}

	var pending int64
	if err := r.db.Conn(ctx).Model(&OutboxMessage{}).Where("status = ?", StatusPending).Count(&pending).Error; err != nil {
		return delivered, err
	}
	r.metrics.RecordOutbox(delivered, failed, pending)
	if len(messages) > 0 {
		logger.Debug(ctx, "Outbox batch processed", "delivered", delivered, "failed", failed, "pending", pending)
	}
	return delivered, nil
}

// CleanupProcessedMessages 删除早于 before 的已发送记录
func (r *OutboxRelay) CleanupProcessedMessages(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.Conn(ctx).Where("status = ? AND updated_at < ?", StatusSent, before).Delete(&OutboxMessage{})
	return res.RowsAffected, res.Error
}

// Run 按轮询间隔投递，每小时清理一次过期记录，ctx 取消时返回
func (r *OutboxRelay) Run(ctx context.Context) {
	poll := time.NewTicker(time.Duration(r.cfg.PollInterval) * time.Second)
	defer poll.Stop()
	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	logger.Info(ctx, "Outbox relay started", "poll_interval", r.cfg.PollInterval, "batch_size", r.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "Outbox relay stopped")
			return
		case <-poll.C:
			if _, err := r.ProcessOutboxMessages(ctx); err != nil && ctx.Err() == nil {
				logger.Error(ctx, "Outbox relay batch failed", "error", err)
			}
		case <-cleanup.C:
			if r.cfg.RetentionDays <= 0 {
				continue
			}
			before := time.Now().AddDate(0, 0, -r.cfg.RetentionDays)
			n, err := r.CleanupProcessedMessages(ctx, before)
			if err != nil {
				logger.Error(ctx, "Outbox cleanup failed", "error", err)
				continue
			}
			logger.Info(ctx, "Outbox cleanup finished", "deleted", n)
		}
	}
}

// send 在单轮内按指数退避重试，间隔上限为 4 倍 retryDelay
func (r *OutboxRelay) send(ctx context.Context, msg mq.Message) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retryDelay
	b.MaxInterval = 4 * r.retryDelay
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.producer.Send(ctx, msg)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(max(r.sendAttempts, 1))))
	return err
}

func (r *OutboxRelay) mark(ctx context.Context, id string, updates map[string]any) error {
	updates["updated_at"] = time.Now()
	return r.db.Conn(ctx).Model(&OutboxMessage{}).Where("id = ?", id).Updates(updates).Error
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
