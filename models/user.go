package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	Password       string             `json:"-" bson:"password,omitempty"`
	Role           string             `json:"role" bson:"role"`
	ProfilePhoto   string             `json:"profilePhoto,omitempty" bson:"profilePhoto,omitempty"`
	Bio            string             `json:"bio,omitempty" bson:"bio,omitempty"`
	FollowersCount int                `json:"followersCount" bson:"followersCount"`
	FollowingCount int                `json:"followingCount" bson:"followingCount"`
	IsBlocked      bool               `json:"isBlocked" bson:"isBlocked"`
	IsPremium      bool               `json:"isPremium" bson:"isPremium"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSearchableFields are matched by the searchTerm query parameter.
var UserSearchableFields = []string{"name", "email", "bio"}

type CreateUserInput struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	ProfilePhoto string `json:"profilePhoto" validate:"omitempty,url"`
	Bio          string `json:"bio"`
	IsPremium    bool   `json:"isPremium"`
}

type UpdateUserInput struct {
	Name         *string `json:"name" validate:"omitempty,min=1"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Password     *string `json:"password" validate:"omitempty,min=6"`
	ProfilePhoto *string `json:"profilePhoto" validate:"omitempty,url"`
	Bio          *string `json:"bio"`
	IsPremium    *bool   `json:"isPremium"`
}

type FollowInput struct {
	FollowingID string `json:"followingId" validate:"required,mongodb"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}
