package comm

import (
	"encoding/json"
	"time"
)

// NATS subjects shared by the card and notify services.
const (
	TopicCardResponded = "card.responded"
)

const (
	EventCardResponded = "card-responded"
	EventSubscribed    = "subscribed"
	EventError         = "error"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "card-responded", "subscribed"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

type CardResponded struct {
	Slug        string    `json:"slug"`
	Response    string    `json:"response"`
	RespondedAt time.Time `json:"responded_at"`
}
