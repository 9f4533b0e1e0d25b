package chat

import "time"

// Participant is the profile summary embedded in conversation payloads.
type Participant struct {
	ID             int     `json:"id"`
	Username       string  `json:"username"`
	Fullname       string  `json:"fullname"`
	ProfilePicture *string `json:"profile_picture"`
}

// LastMessage is the preview attached to a conversation listing.
type LastMessage struct {
	Content   string    `json:"content"`
	SenderID  int       `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}

type Conversation struct {
	ID               int          `json:"id"`
	OtherParticipant *Participant `json:"other_participant"`
	LastMessage      *LastMessage `json:"last_message"`
	UnreadCount      int          `json:"unread_count"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

type CreateConversationRequest struct {
	UserID int `json:"user_id"`
}

type SendMessageRequest struct {
	Content string  `json:"content"`
	Image   *string `json:"image"`
}
