package broker

import (
	"encoding/json"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/avvvet/valentine-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type publisher interface {
	Publish(subj string, data []byte) error
}

type Broker struct {
	Conn publisher
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

// CardResponded tells listeners (the notify service) that a card was answered.
func (b *Broker) CardResponded(card *models.Card) error {
	ev := comm.CardResponded{
		Slug:     card.Slug,
		Response: string(card.Response),
	}
	if card.RespondedAt != nil {
		ev.RespondedAt = *card.RespondedAt
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("[CardResponded] unable to marshal event for %s", card.Slug)
		return err
	}

	msg := &comm.WSMessage{
		Type: comm.EventCardResponded,
		Data: data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return err
	}

	return b.Publish(comm.TopicCardResponded, payload)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
