// Package models contains the domain models for the application.
package models

import (
	"time"
)

// Property is a rental listing owned by exactly one user.
type Property struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Title      string     `json:"title"`
	FeedURL    string     `json:"feed_url,omitempty"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// HasFeed reports whether the property has an external calendar configured.
func (p *Property) HasFeed() bool {
	return p.FeedURL != ""
}

// User is an account that owns properties.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
