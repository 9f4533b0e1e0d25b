package user

type Profile struct {
	ID             int     `json:"id"`
	Email          string  `json:"email"`
	Username       string  `json:"username"`
	Fullname       string  `json:"fullname"`
	ProfilePicture *string `json:"profile_picture"`
	Password       string  `json:"-"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ID          int    `json:"id"`
	Username    string `json:"username"`
	Fullname    string `json:"fullname"`
}

type UpdateProfileRequest struct {
	Fullname       *string `json:"fullname"`
	ProfilePicture *string `json:"profile_picture"`
}

type FollowRequest struct {
	UserID int `json:"user_id"`
}

type FollowStatus struct {
	Following bool `json:"following"`
}
