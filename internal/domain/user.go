package domain

import "time"

// User is an account record. PasswordHash and RefreshToken never
// leave the server; responses use PublicUser or Profile.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	RefreshToken *string   `json:"refresh_token"`
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio"`
	ProfilePic   string    `json:"profile_pic"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PublicUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}
}

// UserSummary is the author/follower projection embedded in other resources.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	ProfilePic  string `json:"profilePic"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		ProfilePic:  u.ProfilePic,
	}
}

type Profile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"displayName"`
	Bio            string `json:"bio"`
	ProfilePic     string `json:"profilePic"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
	PostsCount     int    `json:"postsCount"`
}

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,max=72"`
	DisplayName string `json:"displayName" validate:"max=100"`
}

// LoginRequest accepts either emailOrUsername or the legacy email field.
type LoginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Email           string `json:"email"`
	Password        string `json:"password"`
}

func (r *LoginRequest) LoginKey() string {
	if r.EmailOrUsername != "" {
		return r.EmailOrUsername
	}
	return r.Email
}

type AuthResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         *PublicUser `json:"user"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	ProfilePic  *string `json:"profilePic" validate:"omitempty,max=2048"`
}
