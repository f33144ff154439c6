package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is an identity. Email is the login identifier; there is no username.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"uniqueIndex;size:254;not null"`
	Name        string    `json:"name" gorm:"size:150"`
	Password    string    `json:"-"`                           // encoded hash, empty for social-only accounts
	FirebaseUID *string   `json:"-" gorm:"uniqueIndex;size:128"` // link to the Firebase (Google) account
	IsStaff     bool      `json:"is_staff"`
	CreatedAt   time.Time `json:"date_joined"`
	UpdatedAt   time.Time `json:"-"`
}

// UserDetail is the public representation served at the user detail route.
type UserDetail struct {
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	DateJoined time.Time `json:"date_joined"`
}

// ToDetail returns the public fields of the user
func (u *User) ToDetail() UserDetail {
	return UserDetail{
		Email:      u.Email,
		Name:       u.Name,
		DateJoined: u.CreatedAt,
	}
}

// CanModify reports whether the user may change content owned by ownerID.
func (u *User) CanModify(ownerID uint) bool {
	return u.IsStaff || u.ID == ownerID
}

type SignupRequest struct {
	Name     string `json:"name" validate:"omitempty,max=150"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

// FirebaseLoginRequest carries an ID token issued by Firebase for a Google sign-in.
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
