package user

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrSelfFollow = errors.New("cannot follow yourself")

type Service struct {
	repo      *Repository
	jwtSecret string
}

type JWTClaims struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewService(repo *Repository, secret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: secret,
	}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*Profile, error) {
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		Email:    req.Email,
		Username: req.Username,
		Fullname: req.Fullname,
		Password: string(hashedPwd),
	}

	return s.repo.CreateProfile(ctx, p)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	p, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(req.Password)); err != nil {
		return nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		ID:       p.ID,
		Username: p.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "vibes",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	})

	ss, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: ss,
		ID:          p.ID,
		Username:    p.Username,
		Fullname:    p.Fullname,
	}, nil
}

// ValidateToken verifies an access token and returns the owner's id and
// username. Implements the token validation interfaces of both the HTTP
// middleware and the realtime auth gate.
func (s *Service) ValidateToken(tokenString string) (int, string, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return 0, "", err
	}
	if !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	return claims.ID, claims.Username, nil
}

func (s *Service) GetProfile(ctx context.Context, id int) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id int, req *UpdateProfileRequest) (*Profile, error) {
	return s.repo.UpdateProfile(ctx, id, req.Fullname, req.ProfilePicture)
}

func (s *Service) SearchProfiles(ctx context.Context, query string) ([]Profile, error) {
	return s.repo.SearchProfiles(ctx, query)
}

func (s *Service) Follow(ctx context.Context, followerID, followedID int) error {
	if followerID == followedID {
		return ErrSelfFollow
	}
	if _, err := s.repo.GetByID(ctx, followedID); err != nil {
		return err
	}
	return s.repo.Follow(ctx, followerID, followedID)
}

func (s *Service) Unfollow(ctx context.Context, followerID, followedID int) error {
	return s.repo.Unfollow(ctx, followerID, followedID)
}

func (s *Service) FollowStatus(ctx context.Context, followerID, followedID int) (bool, error) {
	return s.repo.IsFollowing(ctx, followerID, followedID)
}

func (s *Service) Followers(ctx context.Context, userID int) ([]Profile, error) {
	return s.repo.Followers(ctx, userID)
}

func (s *Service) Following(ctx context.Context, userID int) ([]Profile, error) {
	return s.repo.Following(ctx, userID)
}
