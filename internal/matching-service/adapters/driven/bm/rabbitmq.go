package bm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tujane/internal/config"
	bridgedto "tujane/internal/matching-service/core/domain/bridge_dto"
	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchange       = "tujane_topic"
	reconnInterval = 10 * time.Second
	publishTimeout = 3 * time.Second
	prefetch       = 16
)

var errClosed = errors.New("amqp connection is closed")

type RabbitMQ struct {
	ctx          context.Context
	cfg          *config.RabbitMqconfig
	mylog        mylogger.Logger
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
	mu           *sync.Mutex
}

var _ ports.IBroker = (*RabbitMQ)(nil)

func New(ctx context.Context, rabbitmqCfg *config.RabbitMqconfig, mylog mylogger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx:   ctx,
		cfg:   rabbitmqCfg,
		mylog: mylog,
		mu:    &sync.Mutex{},
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return r, nil
}

// Send publishes a direct message for the bridge to deliver.
func (r *RabbitMQ) Send(ctx context.Context, to, text string, attachment *model.Attachment) error {
	return r.publish(ctx, ports.OutboundDirect, bridgedto.Outbound{
		To:         to,
		Text:       text,
		Attachment: attachment,
	})
}

func (r *RabbitMQ) Broadcast(ctx context.Context, group, text string) error {
	return r.publish(ctx, ports.OutboundBroadcast, bridgedto.Broadcast{
		Group: group,
		Text:  text,
	})
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, msg any) error {
	log := r.mylog.Action("publish").With("routing_key", routingKey)

	if !r.IsAlive() {
		log.Error("connection to rabbitmq is closed", errClosed)
		go r.reconnect(r.ctx)
		return errClosed
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	confirm, err := ch.PublishWithDeferredConfirmWithContext(pubCtx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	acked, err := confirm.WaitContext(pubCtx)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", routingKey, err)
	}
	if !acked {
		return fmt.Errorf("publish %s: broker nacked the message", routingKey)
	}
	log.Debug("message published")
	return nil
}

// ConsumeInbound declares the inbound queue and returns its deliveries.
// Messages must be acked by the caller.
func (r *RabbitMQ) ConsumeInbound(ctx context.Context) (<-chan amqp.Delivery, error) {
	if !r.IsAlive() {
		go r.reconnect(r.ctx)
		return nil, errClosed
	}

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()

	if _, err := ch.QueueDeclare(ports.InboundQueue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(ports.InboundQueue, ports.InboundBinding, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	return ch.ConsumeWithContext(ctx, ports.InboundQueue, "tujane-matcher", false, false, false, false, nil)
}

func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	if r.ch == nil || r.ch.IsClosed() {
		return false
	}
	return true
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.cfg.URL())
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(reconnInterval)
	defer t.Stop()
	log := r.mylog.Action("mb_reconnecting")

	for {
		select {
		case <-t.C:
			if err := r.connect(); err == nil {
				log.Action("mb_reconnection_completed").Info("successfully reconnected")
				return
			}
			log.Warn("rabbitmq failed to reconnect")
		case <-ctx.Done():
			return
		}
	}
}
