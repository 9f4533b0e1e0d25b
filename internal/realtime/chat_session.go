package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUnauthenticated rejects anonymous connects on the chat channel.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNotParticipant rejects principals outside the conversation's
	// participant set (or connects to a conversation that does not exist).
	ErrNotParticipant = errors.New("not a conversation participant")
)

// ChatStore is the storage collaborator a chat session needs. CreateMessage
// persists the message and bumps the conversation's updated_at in one
// transaction.
type ChatStore interface {
	IsParticipant(ctx context.Context, conversationID, userID int) (bool, error)
	CreateMessage(ctx context.Context, conversationID, senderID int, content string) (*Message, error)
	MarkRead(ctx context.Context, conversationID, readerID int) (int64, error)
}

type sessionState int

const (
	stateConnecting sessionState = iota
	stateAuthorized
	stateActive
	stateClosed
)

// ChatSession is the per-connection protocol state machine for a conversation
// channel: connecting -> authorized -> active -> closed. Participancy is
// verified once, at authorization time. A participant removed from the
// conversation mid-session keeps receiving group events until disconnect;
// that window is accepted on purpose and covered by tests.
type ChatSession struct {
	registry *Registry
	broker   *Broker
	store    ChatStore

	principal      *Principal
	conversationID int
	group          string

	connID    string
	state     sessionState
	closeOnce sync.Once
}

func NewChatSession(registry *Registry, broker *Broker, store ChatStore, principal *Principal, conversationID int) *ChatSession {
	return &ChatSession{
		registry:       registry,
		broker:         broker,
		store:          store,
		principal:      principal,
		conversationID: conversationID,
		group:          ConversationGroup(conversationID),
		state:          stateConnecting,
	}
}

// Authorize moves the session from connecting to authorized. Anonymous
// principals, unknown conversations and non-participants all close the
// session without ever touching the registry.
func (s *ChatSession) Authorize(ctx context.Context) error {
	if s.state != stateConnecting {
		return errors.New("session already resolved")
	}

	if s.principal == nil {
		s.state = stateClosed
		return ErrUnauthenticated
	}

	ok, err := s.store.IsParticipant(ctx, s.conversationID, s.principal.ID)
	if err != nil {
		s.state = stateClosed
		log.Warn().Err(err).Int("conversation_id", s.conversationID).Msg("participancy check failed")
		return ErrNotParticipant
	}
	if !ok {
		s.state = stateClosed
		return ErrNotParticipant
	}

	s.state = stateAuthorized
	return nil
}

// Join registers the connection and adds it to the conversation group,
// moving the session to active.
func (s *ChatSession) Join(sender Sender) error {
	if s.state != stateAuthorized {
		return errors.New("session not authorized")
	}

	s.connID = s.registry.Register(sender)
	s.registry.Join(s.connID, s.group)
	s.state = stateActive
	return nil
}

// HandleFrame dispatches one inbound client frame. Malformed payloads and
// unknown types are dropped without an error frame, matching the wire
// contract.
func (s *ChatSession) HandleFrame(ctx context.Context, raw []byte) {
	if s.state != stateActive {
		return
	}

	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}

	switch frame.Type {
	case frameSendMessage:
		s.handleSendMessage(ctx, frame.Content)
	case frameTyping:
		s.broker.Publish(s.group, Typing(s.principal.ID, frame.IsTyping), s.connID)
	case frameMarkRead:
		s.handleMarkRead(ctx)
	}
}

func (s *ChatSession) handleSendMessage(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	msg, err := s.store.CreateMessage(ctx, s.conversationID, s.principal.ID, content)
	if err != nil {
		// storage is the source of truth: nothing was written, so
		// nothing is published
		log.Error().Err(err).Int("conversation_id", s.conversationID).Msg("persist message failed")
		return
	}

	// no exclusion: the sender gets its own message echoed back
	s.broker.Publish(s.group, NewMessage(*msg), "")
}

func (s *ChatSession) handleMarkRead(ctx context.Context) {
	if _, err := s.store.MarkRead(ctx, s.conversationID, s.principal.ID); err != nil {
		log.Error().Err(err).Int("conversation_id", s.conversationID).Msg("mark read failed")
		return
	}

	s.broker.Publish(s.group, MessagesRead(s.principal.ID), s.connID)
}

// Close tears the session down. Runs the registry cleanup exactly once no
// matter how many teardown paths race into it.
func (s *ChatSession) Close() {
	s.closeOnce.Do(func() {
		if s.connID != "" {
			s.registry.Unregister(s.connID)
		}
		s.state = stateClosed
	})
}
