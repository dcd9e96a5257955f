package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	bridgedto "tujane/internal/matching-service/core/domain/bridge_dto"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"

	"github.com/rabbitmq/amqp091-go"
)

const resubscribeInterval = 5 * time.Second

var errEmptyChat = errors.New("inbound message has no chat id")

// Consumer moves inbound chat messages from the broker into the inbox.
type Consumer struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	log       mylogger.Logger
	source    ports.IInboundConsumer
	inbox     ports.IInbox
	retry     time.Duration
	consuming atomic.Bool
}

func New(
	ctx context.Context,
	wg *sync.WaitGroup,
	log mylogger.Logger,
	source ports.IInboundConsumer,
	inbox ports.IInbox,
) *Consumer {
	return &Consumer{
		ctx:    ctx,
		wg:     wg,
		log:    log,
		source: source,
		inbox:  inbox,
		retry:  resubscribeInterval,
	}
}

func (c *Consumer) Run() error {
	ch, err := c.source.ConsumeInbound(c.ctx)
	if err != nil {
		return err
	}
	c.consuming.Store(true)

	c.wg.Add(1)
	go c.work(c.ctx, ch, c.Inbound)
	return nil
}

func (c *Consumer) work(
	ctx context.Context,
	ch <-chan amqp091.Delivery,
	Do func(msg amqp091.Delivery) error,
) {
	log := c.log.Action("work")
	defer func() {
		log.Info("inbound worker is done")
		c.wg.Done()
	}()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				c.consuming.Store(false)
				log.Warn("deliveries channel closed, resubscribing")
				if ch = c.resubscribe(ctx); ch == nil {
					return
				}
				c.consuming.Store(true)
				continue
			}
			if err := Do(msg); err != nil {
				continue
			}
		case <-ctx.Done():
			return
		}
	}
}

// resubscribe retries ConsumeInbound until the broker hands out a new
// deliveries channel. It returns nil once ctx is done.
func (c *Consumer) resubscribe(ctx context.Context) <-chan amqp091.Delivery {
	log := c.log.Action("resubscribe")
	t := time.NewTicker(c.retry)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			ch, err := c.source.ConsumeInbound(ctx)
			if err != nil {
				log.Warn("inbound queue not available yet", "error", err.Error())
				continue
			}
			log.Info("inbound consumer resubscribed")
			return ch
		case <-ctx.Done():
			return nil
		}
	}
}

// IsConsuming reports whether a deliveries channel is currently being read.
func (c *Consumer) IsConsuming() bool {
	return c.consuming.Load()
}

// Inbound decodes one delivery and submits it. Undecodable deliveries are
// dropped; a full inbox puts the message back on the queue.
func (c *Consumer) Inbound(msg amqp091.Delivery) error {
	log := c.log.Action("Inbound").With("routing_key", msg.RoutingKey)

	var in bridgedto.Inbound
	if err := json.Unmarshal(msg.Body, &in); err != nil {
		log.Error("cannot unmarshal", err)
		_ = msg.Nack(false, false)
		return err
	}
	if in.ChatID == "" {
		log.Warn("dropping message without chat id")
		_ = msg.Nack(false, false)
		return errEmptyChat
	}

	if err := c.inbox.Submit(c.ctx, in.ToModel()); err != nil {
		log.Error("cannot submit to inbox", err, "chat_id", in.ChatID)
		_ = msg.Nack(false, true)
		return err
	}

	log.Debug("message submitted", "chat_id", in.ChatID, "is_group", in.IsGroup)
	return msg.Ack(false)
}
