package post

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("post not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const postColumns = `
	SELECT p.id, u.username, p.user_id, u.fullname, u.profile_picture,
	       p.content, p.image, p.created_at,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id),
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
	       EXISTS(SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = $1)
	FROM posts p
	JOIN profiles u ON u.id = p.user_id
`

// ListPosts returns posts newest first, optionally filtered to one author.
// viewerID drives the liked_by_user flag.
func (r *Repository) ListPosts(ctx context.Context, viewerID int, authorID *int) ([]Post, error) {
	query := postColumns
	args := []any{viewerID}
	if authorID != nil {
		query += " WHERE p.user_id = $2"
		args = append(args, *authorID)
	}
	query += " ORDER BY p.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		err := rows.Scan(&p.ID, &p.User, &p.UserID, &p.UserFullname, &p.UserProfilePicture,
			&p.Content, &p.Image, &p.CreatedAt, &p.LikesCount, &p.CommentsCount, &p.LikedByUser)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *Repository) GetPost(ctx context.Context, viewerID, postID int) (*Post, error) {
	query := postColumns + " WHERE p.id = $2"

	var p Post
	err := r.db.QueryRowContext(ctx, query, viewerID, postID).Scan(
		&p.ID, &p.User, &p.UserID, &p.UserFullname, &p.UserProfilePicture,
		&p.Content, &p.Image, &p.CreatedAt, &p.LikesCount, &p.CommentsCount, &p.LikedByUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreatePost(ctx context.Context, userID int, content string, image *string) (*Post, error) {
	var id int
	query := "INSERT INTO posts (user_id, content, image) VALUES ($1, $2, $3) RETURNING id"
	if err := r.db.QueryRowContext(ctx, query, userID, content, image).Scan(&id); err != nil {
		return nil, err
	}
	return r.GetPost(ctx, userID, id)
}

// Like records a like if one is not already there. Idempotent.
func (r *Repository) Like(ctx context.Context, userID, postID int) (bool, error) {
	query := "INSERT INTO likes (user_id, post_id) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	res, err := r.db.ExecContext(ctx, query, userID, postID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository) Unlike(ctx context.Context, userID, postID int) error {
	query := "DELETE FROM likes WHERE user_id = $1 AND post_id = $2"
	_, err := r.db.ExecContext(ctx, query, userID, postID)
	return err
}

func (r *Repository) LikesCount(ctx context.Context, postID int) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM likes WHERE post_id = $1"
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&count)
	return count, err
}

func (r *Repository) PostExists(ctx context.Context, postID int) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)"
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&exists)
	return exists, err
}

func (r *Repository) ListComments(ctx context.Context, postID int) ([]Comment, error) {
	query := `
		SELECT c.id, c.post_id, u.username, c.user_id, u.profile_picture, c.content, c.created_at
		FROM comments c
		JOIN profiles u ON u.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.Post, &c.User, &c.UserID, &c.UserProfilePicture, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *Repository) CreateComment(ctx context.Context, userID, postID int, text string) (*Comment, error) {
	c := &Comment{Post: postID, UserID: userID, Text: text}
	insert := "INSERT INTO comments (post_id, user_id, content) VALUES ($1, $2, $3) RETURNING id, created_at"
	if err := r.db.QueryRowContext(ctx, insert, postID, userID, text).Scan(&c.ID, &c.CreatedAt); err != nil {
		return nil, err
	}

	author := "SELECT username, profile_picture FROM profiles WHERE id = $1"
	if err := r.db.QueryRowContext(ctx, author, userID).Scan(&c.User, &c.UserProfilePicture); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) CommentsCount(ctx context.Context, postID int) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM comments WHERE post_id = $1"
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&count)
	return count, err
}
