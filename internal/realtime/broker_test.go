package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func (s *recordingSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection mid-teardown")
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *recordingSender) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.payloads...)
}

func TestBrokerPublishExcludesSender(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)

	a := &recordingSender{}
	b := &recordingSender{}
	idA := registry.Register(a)
	idB := registry.Register(b)
	registry.Join(idA, "conversation:1")
	registry.Join(idB, "conversation:1")

	broker.Publish("conversation:1", Typing(7, true), idA)

	assert.Empty(t, a.received())
	require.Len(t, b.received(), 1)

	var event TypingEvent
	require.NoError(t, json.Unmarshal(b.received()[0], &event))
	assert.Equal(t, "typing", event.Type)
	assert.Equal(t, 7, event.UserID)
	assert.True(t, event.IsTyping)
}

func TestBrokerPublishWithoutExclusionEchoes(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)

	a := &recordingSender{}
	b := &recordingSender{}
	registry.Join(registry.Register(a), "conversation:1")
	registry.Join(registry.Register(b), "conversation:1")

	broker.Publish("conversation:1", MessagesRead(3), "")

	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 1)
}

func TestBrokerDeliveryFailureDoesNotStopOthers(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)

	healthy1 := &recordingSender{}
	broken := &recordingSender{fail: true}
	healthy2 := &recordingSender{}
	registry.Join(registry.Register(healthy1), "conversation:1")
	registry.Join(registry.Register(broken), "conversation:1")
	registry.Join(registry.Register(healthy2), "conversation:1")

	broker.Publish("conversation:1", Typing(1, false), "")

	assert.Len(t, healthy1.received(), 1)
	assert.Len(t, healthy2.received(), 1)
}

func TestBrokerPublishToEmptyGroup(t *testing.T) {
	broker := NewBroker(NewRegistry())

	// nobody connected: the publish is simply a no-op
	broker.Publish(GroupFeed, MessagesRead(1), "")
}

func TestBrokerDoesNotDeliverToOtherGroups(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)

	member := &recordingSender{}
	bystander := &recordingSender{}
	registry.Join(registry.Register(member), "conversation:1")
	registry.Join(registry.Register(bystander), "conversation:2")

	broker.Publish("conversation:1", Typing(1, true), "")

	assert.Len(t, member.received(), 1)
	assert.Empty(t, bystander.received())
}

func TestBrokerNoBacklogForLateJoiners(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)

	broker.Publish("conversation:1", Typing(1, true), "")

	late := &recordingSender{}
	registry.Join(registry.Register(late), "conversation:1")

	assert.Empty(t, late.received())
}
