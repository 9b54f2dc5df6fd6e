package broker

import (
	"encoding/json"

	"github.com/avvvet/valentine-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Sender interface {
	WriteJSON(v interface{}) error
}

type Broker struct {
	Conn        *nats.Conn
	GetSender   func(socketId string) (Sender, bool)
	GetWatchers func(slug string) ([]string, bool)
}

func NewBroker(conn *nats.Conn, getSender func(string) (Sender, bool), getWatchers func(string) ([]string, bool)) *Broker {
	return &Broker{
		Conn:        conn,
		GetSender:   getSender,
		GetWatchers: getWatchers,
	}
}

// consume card events from the card service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	b.dispatch(msgNats.Data)
}

func (b *Broker) dispatch(data []byte) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(data, message); err != nil {
		log.Errorf("Error %s", err)
		return
	}

	switch message.Type {
	case comm.EventCardResponded:
		var ev comm.CardResponded
		if err := json.Unmarshal(message.Data, &ev); err != nil {
			log.Errorf("Error malformed %s payload: %s", message.Type, err)
			return
		}
		b.sendToWatchers(ev.Slug, message)
	default:
		log.Warnf("Unknown message %s", message.Type)
	}
}

// send socket message to every client watching the card
func (b *Broker) sendToWatchers(slug string, m *comm.WSMessage) {
	sockets, ok := b.GetWatchers(slug)
	if !ok {
		return
	}

	for _, socketId := range sockets {
		sender, ok := b.GetSender(socketId)
		if !ok {
			continue
		}
		out := *m
		out.SocketId = socketId
		if err := sender.WriteJSON(&out); err != nil {
			log.Errorf("Failed to push %s to socket %s: %v", m.Type, socketId, err)
		}
	}
}
