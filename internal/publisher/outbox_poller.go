package publisher

import (
	"context"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	r "github.com/fjod/go_cart/marketplace-checkout/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const batchSize = 100

type Store interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	ListStuckPaidOrders(ctx context.Context, cutoff time.Time, limit int) ([]*d.Order, error)
}

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderFinisher completes a paid order whose cart was never cleared.
type OrderFinisher interface {
	FinishPaidOrder(ctx context.Context, order *d.Order) error
}

// OutboxPoller relays outbox events to Kafka and retries the tail of confirms that stopped
// after payment was recorded.
type OutboxPoller struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	stuckAfter   time.Duration
	repo         Store
	writer       MessageWriter
	finisher     OrderFinisher
	log          *zap.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(repo Store, writer MessageWriter, finisher OrderFinisher, tick time.Duration, log *zap.Logger) *OutboxPoller {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxPoller{
		eventTick:    tick,
		recoveryTick: 30 * time.Second,
		stuckAfter:   time.Minute,
		repo:         repo,
		writer:       writer,
		finisher:     finisher,
		log:          log,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckOrders(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Error("failed to publish outbox event", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error("failed to mark outbox event processed", zap.Int64("event_id", event.ID), zap.Error(err))
		}
	}
}

// recoverStuckOrders finishes paid orders left behind by a failed cart clear.
func (p *OutboxPoller) recoverStuckOrders(ctx context.Context) {
	if p.finisher == nil {
		return
	}
	orders, err := p.repo.ListStuckPaidOrders(ctx, time.Now().Add(-p.stuckAfter), batchSize)
	if err != nil {
		p.log.Error("failed to list stuck orders", zap.Error(err))
		return
	}
	for _, order := range orders {
		if err := p.finisher.FinishPaidOrder(ctx, order); err != nil {
			p.log.Warn("stuck order still not finished", zap.String("order_id", order.ID.String()), zap.Error(err))
			continue
		}
		p.log.Info("stuck order recovered", zap.String("order_id", order.ID.String()))
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps one order's events in one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
