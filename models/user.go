package models

import "time"

type User struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

type UserWithoutSecrets struct {
	Name     string     `json:"name"`
	Username string     `json:"username"`
	Avatar   string     `json:"avatar"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Session represents an authenticated caller.
type Session struct {
	Username string `json:"username"`
	Token    string `json:"-"`
}
