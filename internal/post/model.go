package post

import "time"

type Post struct {
	ID                 int       `json:"id"`
	User               string    `json:"user"`
	UserID             int       `json:"user_id"`
	UserFullname       string    `json:"user_fullname"`
	UserProfilePicture *string   `json:"user_profile_picture"`
	Content            string    `json:"content"`
	Image              *string   `json:"image"`
	CreatedAt          time.Time `json:"created_at"`
	LikesCount         int       `json:"likes_count"`
	CommentsCount      int       `json:"comments_count"`
	LikedByUser        bool      `json:"liked_by_user"`
}

type Comment struct {
	ID                 int       `json:"id"`
	Post               int       `json:"post"`
	User               string    `json:"user"`
	UserID             int       `json:"user_id"`
	UserProfilePicture *string   `json:"user_profile_picture"`
	Text               string    `json:"text"`
	CreatedAt          time.Time `json:"created_at"`
}

type CreatePostRequest struct {
	Content string  `json:"content"`
	Image   *string `json:"image"`
}

type CreateCommentRequest struct {
	Text string `json:"text"`
}

// UpdateEvent is the feed broadcast envelope. Only the fields relevant to the
// event kind are set; the rest stay off the wire.
type UpdateEvent struct {
	Type          string   `json:"type"`
	Event         string   `json:"event"`
	Post          *Post    `json:"post,omitempty"`
	PostID        int      `json:"post_id,omitempty"`
	LikesCount    *int     `json:"likes_count,omitempty"`
	Comment       *Comment `json:"comment,omitempty"`
	CommentsCount *int     `json:"comments_count,omitempty"`
}

func newPostEvent(p *Post) UpdateEvent {
	return UpdateEvent{Type: "post_update", Event: "new_post", Post: p}
}

func likeEvent(event string, postID, likesCount int) UpdateEvent {
	return UpdateEvent{Type: "post_update", Event: event, PostID: postID, LikesCount: &likesCount}
}

func commentEvent(c *Comment, commentsCount int) UpdateEvent {
	return UpdateEvent{Type: "post_update", Event: "comment", PostID: c.Post, Comment: c, CommentsCount: &commentsCount}
}
