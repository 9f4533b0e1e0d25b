// Package realtime implements the in-process fan-out layer: a registry of
// live websocket connections, a group-keyed broker, and the per-connection
// session handlers for conversation channels and the global feed.
package realtime

import (
	"fmt"
	"time"
)

// GroupFeed is the single global group every feed connection joins.
const GroupFeed = "feed:global"

// ConversationGroup returns the fan-out group key for a conversation.
func ConversationGroup(conversationID int) string {
	return fmt.Sprintf("conversation:%d", conversationID)
}

// Principal is the authenticated identity attached to a connection for its
// whole lifetime.
type Principal struct {
	ID       int
	Username string
}

// clientFrame is the envelope clients send on the chat channel. Unknown types
// and undecodable payloads are dropped without a reply.
type clientFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	IsTyping bool   `json:"is_typing"`
}

const (
	frameSendMessage = "send_message"
	frameTyping      = "typing"
	frameMarkRead    = "mark_read"
)

// Message is the wire shape of a persisted chat message, with sender fields
// denormalized for the UI.
type Message struct {
	ID                   int       `json:"id"`
	Conversation         int       `json:"conversation"`
	SenderID             int       `json:"sender_id"`
	SenderUsername       string    `json:"sender_username"`
	SenderFullname       string    `json:"sender_fullname"`
	SenderProfilePicture *string   `json:"sender_profile_picture"`
	Content              string    `json:"content"`
	Image                *string   `json:"image"`
	CreatedAt            time.Time `json:"created_at"`
	IsRead               bool      `json:"is_read"`
}

// NewMessageEvent fans a freshly persisted message out to a conversation
// group, sender included.
type NewMessageEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

func NewMessage(msg Message) NewMessageEvent {
	return NewMessageEvent{Type: "new_message", Message: msg}
}

// TypingEvent is relayed to everyone in the conversation except the typist.
type TypingEvent struct {
	Type     string `json:"type"`
	UserID   int    `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

func Typing(userID int, isTyping bool) TypingEvent {
	return TypingEvent{Type: "typing", UserID: userID, IsTyping: isTyping}
}

// MessagesReadEvent tells the other participants their messages were read.
type MessagesReadEvent struct {
	Type     string `json:"type"`
	ReaderID int    `json:"reader_id"`
}

func MessagesRead(readerID int) MessagesReadEvent {
	return MessagesReadEvent{Type: "messages_read", ReaderID: readerID}
}
