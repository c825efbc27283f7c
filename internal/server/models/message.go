package models

import "time"

// Message is a short text owned by exactly one user.
type Message struct {
	ID        int64
	UserID    int64
	Text      string
	CreatedAt time.Time
}
