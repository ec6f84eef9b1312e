package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PasswordDigest string    `db:"password_digest" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}
