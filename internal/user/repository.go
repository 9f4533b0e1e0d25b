package user

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	var id int
	query := "INSERT INTO profiles (email, username, fullname, password) VALUES ($1, $2, $3, $4) RETURNING id"

	err := r.db.QueryRowContext(ctx, query, p.Email, p.Username, p.Fullname, p.Password).Scan(&id)
	if err != nil {
		return nil, err
	}

	p.ID = id
	return p, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	p := &Profile{}
	query := "SELECT id, email, username, fullname, profile_picture, password FROM profiles WHERE email = $1"

	err := r.db.QueryRowContext(ctx, query, email).Scan(&p.ID, &p.Email, &p.Username, &p.Fullname, &p.ProfilePicture, &p.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int) (*Profile, error) {
	p := &Profile{}
	query := "SELECT id, email, username, fullname, profile_picture, password FROM profiles WHERE id = $1"

	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Email, &p.Username, &p.Fullname, &p.ProfilePicture, &p.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return p, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id int, fullname, picture *string) (*Profile, error) {
	query := `
		UPDATE profiles
		SET fullname = COALESCE($2, fullname),
		    profile_picture = COALESCE($3, profile_picture)
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, fullname, picture)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) SearchProfiles(ctx context.Context, query string) ([]Profile, error) {
	// We limit to 10 to keep it fast
	q := `SELECT id, username, fullname, profile_picture FROM profiles WHERE username ILIKE $1 LIMIT 10`
	rows, err := r.db.QueryContext(ctx, q, "%"+query+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Fullname, &p.ProfilePicture); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *Repository) Follow(ctx context.Context, followerID, followedID int) error {
	query := "INSERT INTO follows (follower_id, followed_id) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	_, err := r.db.ExecContext(ctx, query, followerID, followedID)
	return err
}

func (r *Repository) Unfollow(ctx context.Context, followerID, followedID int) error {
	query := "DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2"
	_, err := r.db.ExecContext(ctx, query, followerID, followedID)
	return err
}

func (r *Repository) IsFollowing(ctx context.Context, followerID, followedID int) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followed_id = $2)"
	err := r.db.QueryRowContext(ctx, query, followerID, followedID).Scan(&exists)
	return exists, err
}

func (r *Repository) Followers(ctx context.Context, userID int) ([]Profile, error) {
	query := `
		SELECT p.id, p.username, p.fullname, p.profile_picture
		FROM follows f
		JOIN profiles p ON p.id = f.follower_id
		WHERE f.followed_id = $1
		ORDER BY f.created_at DESC
	`
	return r.queryProfiles(ctx, query, userID)
}

func (r *Repository) Following(ctx context.Context, userID int) ([]Profile, error) {
	query := `
		SELECT p.id, p.username, p.fullname, p.profile_picture
		FROM follows f
		JOIN profiles p ON p.id = f.followed_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC
	`
	return r.queryProfiles(ctx, query, userID)
}

func (r *Repository) queryProfiles(ctx context.Context, query string, args ...any) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Fullname, &p.ProfilePicture); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
