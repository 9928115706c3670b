package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a principal's stored login secret. Username is unique.
type Credential struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Credential model
func (Credential) TableName() string {
	return "users"
}

// NewCredential creates a new Credential instance
func NewCredential(username, passwordHash string, role Role) *Credential {
	return &Credential{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
}

// Identity returns the authenticated identity for this credential
func (c *Credential) Identity() *Identity {
	return &Identity{Username: c.Username, Role: c.Role}
}
