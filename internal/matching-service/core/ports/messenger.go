package ports

import (
	"context"

	"tujane/internal/matching-service/core/domain/model"
)

// IMessenger delivers outbound texts through the messaging transport.
type IMessenger interface {
	Send(ctx context.Context, to, text string, attachment *model.Attachment) error
	Broadcast(ctx context.Context, group, text string) error
}

// IInbox accepts inbound messages from a transport.
type IInbox interface {
	Submit(ctx context.Context, msg model.InboundMessage) error
}
