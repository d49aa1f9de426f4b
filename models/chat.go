package models

import (
	"time"
)

// RoomType represents the visibility of a chat room.
type RoomType string

const (
	// PublicRoom is a room any user can join.
	PublicRoom RoomType = "public"
	// PrivateRoom is a room users can only be added to.
	PrivateRoom RoomType = "private"
	// DirectRoom is a one-to-one conversation between two users.
	DirectRoom RoomType = "direct"
)

// Valid reports whether t is one of the supported room types.
func (t RoomType) Valid() bool {
	switch t {
	case PublicRoom, PrivateRoom, DirectRoom:
		return true
	}
	return false
}

// MessageType is used to determine how the message content should be interpreted.
type MessageType string

const (
	// TextMessage indicates that the content is a UTF-8 encoded string.
	TextMessage MessageType = "text"
	// ImageMessage indicates that the content references an image.
	ImageMessage MessageType = "image"
	// FileMessage indicates that the content references a file.
	FileMessage MessageType = "file"
)

// Valid reports whether t is one of the supported message types.
func (t MessageType) Valid() bool {
	switch t {
	case TextMessage, ImageMessage, FileMessage:
		return true
	}
	return false
}

type MemberRole string

const (
	Admin     MemberRole = "admin"
	Moderator MemberRole = "moderator"
	Member    MemberRole = "member"
)

// Valid reports whether r is one of the supported member roles.
func (r MemberRole) Valid() bool {
	switch r {
	case Admin, Moderator, Member:
		return true
	}
	return false
}

// RoomMember represents a user's membership in a chat room.
// A user appears at most once per room.
type RoomMember struct {
	RoomID   string     `json:"room_id"`
	Username string     `json:"username"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Room represents a chat room.
// A room that is not active is logically deleted: it is excluded from
// listings and lookups but its record is kept.
type Room struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        RoomType     `json:"type"`
	Members     []RoomMember `json:"members,omitempty"`
	// MemberCount is populated on summary listings where Members is elided.
	MemberCount int    `json:"member_count,omitempty"`
	CreatedBy   string `json:"created_by"`
	// LastMessage is a preview of the most recent message sent to the room.
	LastMessage *MessagePreview `json:"last_message,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MessagePreview is the subset of a message shown on room listings.
type MessagePreview struct {
	ID      int       `json:"id"`
	Sender  string    `json:"sender"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// ReadReceipt records that a user has read a message.
type ReadReceipt struct {
	Username string    `json:"username"`
	ReadAt   time.Time `json:"read_at"`
}

// Message represents a chat message sent by a user to a room.
// Content carries the plaintext body: it is either caller input or the
// result of decryption, never the stored form. Only the ciphertext is
// persisted.
type Message struct {
	ID     int    `json:"id"`
	RoomID string `json:"room_id"`
	Sender string `json:"sender"`
	// Type is used to determine how the message content should be interpreted.
	Type      MessageType   `json:"type"`
	Content   string        `json:"content"`
	IsEdited  bool          `json:"is_edited"`
	EditedAt  *time.Time    `json:"edited_at,omitempty"`
	ReadBy    []ReadReceipt `json:"read_by,omitempty"`
	SentAt    time.Time     `json:"sent_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// MessagePage is one page of a room's message history. Messages are in
// chronological order within the page; pages themselves run newest to
// oldest, so page boundaries do not give cross-page continuity.
type MessagePage struct {
	Messages    []Message `json:"messages"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
}
