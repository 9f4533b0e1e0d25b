package realtime

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Broker fans events out to every current member of a group. Delivery is
// best-effort and independent per member: one dead or slow connection never
// blocks the rest and never fails the publish.
type Broker struct {
	registry *Registry
}

func NewBroker(registry *Registry) *Broker {
	return &Broker{registry: registry}
}

// Publish serializes the event once and hands it to every member of the group
// except excludeConnID (pass "" to deliver to all, echoing the sender).
// Connections joining after this call never see the event.
func (b *Broker) Publish(group string, event any, excludeConnID string) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("group", group).Msg("drop unencodable event")
		return
	}

	for _, id := range b.registry.MembersOf(group) {
		if id == excludeConnID {
			continue
		}
		sender := b.registry.senderOf(id)
		if sender == nil {
			// unregistered between the snapshot and now
			continue
		}
		if err := sender.Send(payload); err != nil {
			log.Warn().Err(err).Str("group", group).Str("conn_id", id).Msg("delivery failed")
		}
	}
}
