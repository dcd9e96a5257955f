package bridgedto

import (
	"encoding/json"
	"time"

	"tujane/internal/matching-service/core/domain/model"
)

// Event types exchanged with a messaging bridge over the websocket or the
// broker.
const (
	TypeAuth      = "auth"
	TypeAuthOK    = "auth_ok"
	TypeInbound   = "message.inbound"
	TypeOutbound  = "message.outbound"
	TypeBroadcast = "message.broadcast"
	TypeError     = "error"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type AuthMessage struct {
	Token string `json:"token"`
}

// Inbound is a chat message received by the bridge.
type Inbound struct {
	ChatID    string    `json:"chat_id"`
	Author    string    `json:"author,omitempty"`
	Body      string    `json:"body"`
	IsGroup   bool      `json:"is_group"`
	Timestamp time.Time `json:"timestamp"`
}

func (in Inbound) ToModel() model.InboundMessage {
	at := in.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	return model.InboundMessage{
		ChatID:     in.ChatID,
		Author:     in.Author,
		Text:       in.Body,
		IsGroup:    in.IsGroup,
		ReceivedAt: at,
	}
}

type Outbound struct {
	To         string            `json:"to"`
	Text       string            `json:"text"`
	Attachment *model.Attachment `json:"attachment,omitempty"`
}

type Broadcast struct {
	Group string `json:"group"`
	Text  string `json:"text"`
}

// NewEvent wraps payload into an Event of type t.
func NewEvent(t string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, Data: data}, nil
}
