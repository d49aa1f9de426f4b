package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"sealroom/models"
)

var (
	// ErrRoomNotFound is returned when a room is missing or soft-deleted.
	ErrRoomNotFound = errors.New("room not found")
	// ErrMessageNotFound is returned when a message is missing.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotRoomMember is returned when the caller is not a member of the room.
	ErrNotRoomMember = errors.New("not a member of the room")
	// ErrNotMessageSender is returned when the caller is not the sender of the
	// message. Sender checks apply even to room admins.
	ErrNotMessageSender = errors.New("not the sender of the message")
	// ErrAlreadyMember is returned when the user is already a member of the room.
	ErrAlreadyMember = errors.New("already a member of the room")
	// ErrInvalidInput is returned when input is malformed or out of range.
	ErrInvalidInput = errors.New("invalid input")
)

// FallbackContent is substituted for a message body when its ciphertext
// cannot be decrypted. One corrupt record must never fail a read.
const FallbackContent = "[unreadable message]"

var validate = validator.New()

// RoomCreateInput represents the input for creating a room.
type RoomCreateInput struct {
	Name        string          `json:"name" validate:"required,max=50"`
	Description string          `json:"description" validate:"omitempty,max=200"`
	Type        models.RoomType `json:"type" validate:"required,oneof=public private direct"`
	Creator     string          `json:"creator" validate:"required"`
}

// Validate validates the room input. An empty type defaults to public.
func (i *RoomCreateInput) Validate() error {
	if i.Type == "" {
		i.Type = models.PublicRoom
	}
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// MessageCreateInput represents the input for sending a message.
type MessageCreateInput struct {
	RoomID  string             `json:"room_id" validate:"required"`
	Sender  string             `json:"sender" validate:"required"`
	Content string             `json:"content" validate:"required,max=1000"`
	Type    models.MessageType `json:"type" validate:"required,oneof=text image file"`
}

// Validate validates the message input. An empty type defaults to text.
func (i *MessageCreateInput) Validate() error {
	if i.Type == "" {
		i.Type = models.TextMessage
	}
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

type ChatStore interface {

	// CreateRoom creates a room with the creator as its sole admin member.
	// It returns ErrInvalidInput on malformed input.
	CreateRoom(ctx context.Context, input RoomCreateInput) (*models.Room, error)

	// GetUserRooms returns the active rooms the user is a member of, most
	// recently updated first, with members and a decrypted last-message
	// preview hydrated.
	GetUserRooms(ctx context.Context, username string) ([]models.Room, error)

	// GetPublicRooms returns the active public rooms, newest first. Member
	// lists are elided; only the member count is populated.
	GetPublicRooms(ctx context.Context) ([]models.Room, error)

	// GetRoomByID returns the room with the given ID with members hydrated.
	// It returns nil if the room is missing or soft-deleted.
	GetRoomByID(ctx context.Context, roomID string) (*models.Room, error)

	// JoinRoom adds the user to the room with the member role. The addition
	// is atomic add-if-absent: a concurrent duplicate join cannot produce
	// two membership entries. It returns ErrRoomNotFound if the room is
	// missing and ErrAlreadyMember if the user is already a member.
	JoinRoom(ctx context.Context, roomID, username string) (*models.Room, error)

	// LeaveRoom removes the user's membership. Removing a non-member is a
	// no-op. It returns ErrRoomNotFound if the room is missing.
	LeaveRoom(ctx context.Context, roomID, username string) error

	// IsRoomMember reports whether the user is a member of the room, and
	// their role if so.
	IsRoomMember(ctx context.Context, roomID, username string) (bool, models.MemberRole, error)

	// SendMessageToRoom encrypts and persists a message and updates the
	// room's last-message pointer in the same transaction. The returned
	// message carries the plaintext content for immediate display.
	// It returns ErrRoomNotFound if the room is missing and
	// ErrNotRoomMember if the sender is not a member.
	SendMessageToRoom(ctx context.Context, input MessageCreateInput) (*models.Message, error)

	// GetRoomMessages returns one page of the room's message history.
	// Pages are fetched newest-first and each page is returned in
	// chronological order; page and limit must be positive.
	// Messages whose ciphertext cannot be decrypted carry FallbackContent.
	GetRoomMessages(ctx context.Context, roomID, requester string, page, limit int) (*models.MessagePage, error)

	// EditMessage re-encrypts the message with new content and marks it
	// edited. Only the sender may edit; ErrNotMessageSender otherwise.
	EditMessage(ctx context.Context, messageID int, requester, content string) (*models.Message, error)

	// DeleteMessage permanently removes the message and recomputes the
	// owning room's last-message pointer. Only the sender may delete.
	DeleteMessage(ctx context.Context, messageID int, requester string) error

	// MarkRoomMessagesRead records a read receipt for every message in the
	// room not sent by the user. It returns the number of newly recorded
	// receipts and the read time.
	MarkRoomMessagesRead(ctx context.Context, roomID, username string) (int, time.Time, error)

	// GetRoomMembers returns the room's membership list in join order.
	GetRoomMembers(ctx context.Context, roomID string) ([]models.RoomMember, error)
}
