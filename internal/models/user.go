package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an application user (buyer or seller).
type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	DisplayName    string    `json:"displayName" db:"display_name"`
	Bio            string    `json:"bio" db:"bio"`
	AvatarURL      string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicUser is the safe representation returned via APIs.
type PublicUser struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Bio         string    `json:"bio,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u *User) ToPublicUser() *PublicUser {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return &PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: name,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt,
	}
}

// ChatParticipant is the compact other-participant view used in chat lists.
type ChatParticipant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
}

// CreateUserRequest captures registration input.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginUserRequest captures login input.
type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// UpdateProfileRequest captures profile edits; nil fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty" binding:"omitempty,max=100"`
	Bio         *string `json:"bio,omitempty" binding:"omitempty,max=500"`
	AvatarURL   *string `json:"avatarUrl,omitempty" binding:"omitempty,max=2048"`
}
