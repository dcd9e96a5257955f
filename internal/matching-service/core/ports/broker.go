package ports

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	InboundQueue      = "tujane.inbound"
	InboundBinding    = "message.inbound.*"
	OutboundDirect    = "message.outbound.direct"
	OutboundBroadcast = "message.outbound.broadcast"
)

// IBroker is the amqp side of the messaging bridge. Outbound texts go out
// through IMessenger; inbound chat messages arrive on ConsumeInbound.
type IBroker interface {
	IMessenger
	IInboundConsumer
	IsAlive() bool
	Close() error
}

type IInboundConsumer interface {
	ConsumeInbound(ctx context.Context) (<-chan amqp.Delivery, error)
}
