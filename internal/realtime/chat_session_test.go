package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	participants map[int]bool
	messages     []string
	nextID       int
	createErr    error
	markReadErr  error
	readCalls    []int
}

func newFakeStore(participants ...int) *fakeStore {
	s := &fakeStore{participants: make(map[int]bool)}
	for _, id := range participants {
		s.participants[id] = true
	}
	return s
}

func (s *fakeStore) IsParticipant(_ context.Context, _, userID int) (bool, error) {
	return s.participants[userID], nil
}

func (s *fakeStore) CreateMessage(_ context.Context, conversationID, senderID int, content string) (*Message, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	s.messages = append(s.messages, content)
	return &Message{
		ID:             s.nextID,
		Conversation:   conversationID,
		SenderID:       senderID,
		SenderUsername: "someone",
		Content:        content,
		CreatedAt:      time.Now(),
	}, nil
}

func (s *fakeStore) MarkRead(_ context.Context, _, readerID int) (int64, error) {
	if s.markReadErr != nil {
		return 0, s.markReadErr
	}
	s.readCalls = append(s.readCalls, readerID)
	return 1, nil
}

// joinedSession builds an active session for the given user, backed by a
// recording sender.
func joinedSession(t *testing.T, registry *Registry, broker *Broker, store ChatStore, userID, conversationID int) (*ChatSession, *recordingSender) {
	t.Helper()

	sender := &recordingSender{}
	session := NewChatSession(registry, broker, store, &Principal{ID: userID, Username: "someone"}, conversationID)
	require.NoError(t, session.Authorize(context.Background()))
	require.NoError(t, session.Join(sender))
	return session, sender
}

func decodeFrames[T any](t *testing.T, payloads [][]byte) []T {
	t.Helper()

	out := make([]T, 0, len(payloads))
	for _, p := range payloads {
		var v T
		require.NoError(t, json.Unmarshal(p, &v))
		out = append(out, v)
	}
	return out
}

func TestChatSessionRejectsAnonymous(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1)

	session := NewChatSession(registry, broker, store, nil, 1)
	err := session.Authorize(context.Background())

	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, registry.MembersOf(ConversationGroup(1)))
}

func TestChatSessionRejectsNonParticipant(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1, 2) // user 3 is not in the conversation

	session := NewChatSession(registry, broker, store, &Principal{ID: 3}, 1)
	err := session.Authorize(context.Background())

	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.Empty(t, registry.MembersOf(ConversationGroup(1)))

	// and it never receives anything published afterwards
	_, b := joinedSession(t, registry, broker, store, 2, 1)
	broker.Publish(ConversationGroup(1), Typing(2, true), "")
	assert.Len(t, b.received(), 1)
}

func TestChatSessionJoinRequiresAuthorization(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)

	session := NewChatSession(registry, broker, newFakeStore(), &Principal{ID: 9}, 1)

	assert.Error(t, session.Join(&recordingSender{}))
}

func TestSendMessageEchoesToEveryParticipant(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1, 2)

	sessionA, senderA := joinedSession(t, registry, broker, store, 1, 5)
	_, senderB := joinedSession(t, registry, broker, store, 2, 5)

	frame := []byte(`{"type":"send_message","content":"hi"}`)
	sessionA.HandleFrame(context.Background(), frame)

	require.Equal(t, []string{"hi"}, store.messages)

	for _, sender := range []*recordingSender{senderA, senderB} {
		events := decodeFrames[NewMessageEvent](t, sender.received())
		require.Len(t, events, 1)
		assert.Equal(t, "new_message", events[0].Type)
		assert.Equal(t, "hi", events[0].Message.Content)
		assert.Equal(t, 5, events[0].Message.Conversation)
		assert.Equal(t, 1, events[0].Message.SenderID)
	}
}

func TestSendMessageIgnoresBlankContent(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1)

	session, sender := joinedSession(t, registry, broker, store, 1, 1)

	session.HandleFrame(context.Background(), []byte(`{"type":"send_message","content":"   "}`))
	session.HandleFrame(context.Background(), []byte(`{"type":"send_message","content":""}`))

	assert.Empty(t, store.messages)
	assert.Empty(t, sender.received())
}

func TestSendMessageStorageFailureAbortsPublish(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1, 2)
	store.createErr = errors.New("db down")

	sessionA, senderA := joinedSession(t, registry, broker, store, 1, 1)
	_, senderB := joinedSession(t, registry, broker, store, 2, 1)

	sessionA.HandleFrame(context.Background(), []byte(`{"type":"send_message","content":"hi"}`))

	assert.Empty(t, senderA.received())
	assert.Empty(t, senderB.received())
}

func TestTypingSkipsTheTypist(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1, 2)

	sessionA, senderA := joinedSession(t, registry, broker, store, 1, 1)
	_, senderB := joinedSession(t, registry, broker, store, 2, 1)

	sessionA.HandleFrame(context.Background(), []byte(`{"type":"typing","is_typing":true}`))

	assert.Empty(t, senderA.received())
	events := decodeFrames[TypingEvent](t, senderB.received())
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].UserID)
	assert.True(t, events[0].IsTyping)
}

func TestMarkReadNotifiesOthersOnly(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1, 2)

	sessionA, senderA := joinedSession(t, registry, broker, store, 1, 1)
	_, senderB := joinedSession(t, registry, broker, store, 2, 1)

	sessionA.HandleFrame(context.Background(), []byte(`{"type":"mark_read"}`))

	assert.Equal(t, []int{1}, store.readCalls)
	assert.Empty(t, senderA.received())
	events := decodeFrames[MessagesReadEvent](t, senderB.received())
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].ReaderID)
}

func TestMarkReadStorageFailureSuppressesEvent(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1, 2)
	store.markReadErr = errors.New("db down")

	sessionA, _ := joinedSession(t, registry, broker, store, 1, 1)
	_, senderB := joinedSession(t, registry, broker, store, 2, 1)

	sessionA.HandleFrame(context.Background(), []byte(`{"type":"mark_read"}`))

	assert.Empty(t, senderB.received())
}

func TestMalformedAndUnknownFramesAreDropped(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1, 2)

	sessionA, senderA := joinedSession(t, registry, broker, store, 1, 1)
	_, senderB := joinedSession(t, registry, broker, store, 2, 1)

	sessionA.HandleFrame(context.Background(), []byte(`not json at all`))
	sessionA.HandleFrame(context.Background(), []byte(`{"type":"selfdestruct"}`))
	sessionA.HandleFrame(context.Background(), []byte(`{}`))

	assert.Empty(t, senderA.received())
	assert.Empty(t, senderB.received())
	assert.Empty(t, store.messages)
}

func TestCloseUnregistersExactlyOnce(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1)

	session, _ := joinedSession(t, registry, broker, store, 1, 1)

	session.Close()
	session.Close()

	assert.Empty(t, registry.MembersOf(ConversationGroup(1)))

	// frames after close are ignored
	session.HandleFrame(context.Background(), []byte(`{"type":"send_message","content":"late"}`))
	assert.Empty(t, store.messages)
}

// Participancy is checked once at join time. Removing a participant
// mid-session leaves the open connection receiving events until it
// disconnects; that staleness window is intentional.
func TestParticipancyNotRecheckedMidSession(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)
	store := newFakeStore(1, 2)

	sessionA, _ := joinedSession(t, registry, broker, store, 1, 1)
	_, senderB := joinedSession(t, registry, broker, store, 2, 1)

	// user 2 is removed from the conversation while connected
	store.participants[2] = false

	sessionA.HandleFrame(context.Background(), []byte(`{"type":"send_message","content":"still here"}`))

	events := decodeFrames[NewMessageEvent](t, senderB.received())
	require.Len(t, events, 1)
	assert.Equal(t, "still here", events[0].Message.Content)
}
