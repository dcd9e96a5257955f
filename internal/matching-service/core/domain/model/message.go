package model

import (
	"strings"
	"time"
)

type InboundMessage struct {
	ChatID     string
	Author     string
	Text       string
	IsGroup    bool
	ReceivedAt time.Time
}

// Sender is the participant who wrote the message. In a group chat that is
// the author, otherwise the chat itself.
func (m InboundMessage) Sender() string {
	if m.IsGroup && m.Author != "" {
		return m.Author
	}
	return m.ChatID
}

type Attachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// PhoneOf strips the transport suffix from an identity such as
// "25779000000@c.us".
func PhoneOf(identity string) string {
	phone, _, _ := strings.Cut(identity, "@")
	return strings.TrimPrefix(phone, "+")
}
