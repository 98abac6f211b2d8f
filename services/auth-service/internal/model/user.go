package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is an account record. A pending account carries a VerificationToken;
// a verified one never does.
type User struct {
	ID                         bson.ObjectID `bson:"_id,omitempty"`
	Name                       string        `bson:"name"`
	Email                      string        `bson:"email"`
	PasswordHash               string        `bson:"password_hash"`
	Verified                   bool          `bson:"verified"`
	VerificationToken          string        `bson:"verification_token,omitempty"`
	VerificationTokenExpiresAt *time.Time    `bson:"verification_token_expires_at,omitempty"`
	CreatedAt                  time.Time     `bson:"created_at"`
	UpdatedAt                  time.Time     `bson:"updated_at"`
}

// Pending reports whether the account still awaits email verification.
func (u *User) Pending() bool {
	return !u.Verified
}
