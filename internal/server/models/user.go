// Package models defines the rows the API server persists.
package models

import "time"

// User is the local record for an identity-provider subject.
type User struct {
	ID         int64
	CognitoSub string
	// Email is nil when the provider never supplied one.
	Email     *string
	CreatedAt time.Time
}

// EmailValue returns the stored email or "".
func (u *User) EmailValue() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return *u.Email
}
