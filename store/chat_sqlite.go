package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"sealroom/models"
	"sealroom/pkg/cipher"
)

// SQLiteChatStore persists rooms and messages in SQLite. Message bodies
// are stored as ciphertext only; the injected box seals them on write and
// opens them on read.
type SQLiteChatStore struct {
	db     *sql.DB
	box    *cipher.Box
	logger *slog.Logger
}

func NewSQLiteChatStore(db *sql.DB, box *cipher.Box, logger *slog.Logger) *SQLiteChatStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteChatStore{
		db:     db,
		box:    box,
		logger: logger,
	}
}

func (s *SQLiteChatStore) CreateRoom(ctx context.Context, input RoomCreateInput) (*models.Room, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BeginTx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rooms (id, name, description, type, created_by, is_active, created_at, updated_at)
		VALUES (@id, @name, @description, @type, @created_by, 1, @now, @now)`,
		sql.Named("id", id), sql.Named("name", input.Name),
		sql.Named("description", input.Description), sql.Named("type", string(input.Type)),
		sql.Named("created_by", input.Creator), sql.Named("now", now))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert rooms): %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO room_members (room_id, username, role, joined_at)
		VALUES (@room_id, @username, @role, @now)`,
		sql.Named("room_id", id), sql.Named("username", input.Creator),
		sql.Named("role", string(models.Admin)), sql.Named("now", now))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert room_members): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	return &models.Room{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Type:        input.Type,
		Members: []models.RoomMember{
			{RoomID: id, Username: input.Creator, Role: models.Admin, JoinedAt: now},
		},
		CreatedBy: input.Creator,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteChatStore) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	// LEFT JOIN so an active room whose last member has left still resolves;
	// existence here must agree with activeRoomExists.
	query := `
	SELECT r.id, r.name, r.description, r.type, r.created_by, r.is_active, r.created_at, r.updated_at,
	rm.username, rm.role, rm.joined_at
	FROM rooms AS r
	LEFT JOIN room_members AS rm ON r.id = rm.room_id
	WHERE r.id = @id AND r.is_active = 1
	ORDER BY rm.joined_at ASC, rm.username ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sql.Named("id", roomID))
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	var room models.Room
	room.Members = make([]models.RoomMember, 0, 2)

	for rows.Next() {
		var (
			memberUsername sql.NullString
			memberRole     sql.NullString
			memberJoinedAt sql.NullTime
		)
		if err := rows.Scan(
			&room.ID, &room.Name, &room.Description, &room.Type, &room.CreatedBy,
			&room.IsActive, &room.CreatedAt, &room.UpdatedAt,
			&memberUsername, &memberRole, &memberJoinedAt,
		); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		if memberUsername.Valid {
			room.Members = append(room.Members, models.RoomMember{
				RoomID:   roomID,
				Username: memberUsername.String,
				Role:     models.MemberRole(memberRole.String),
				JoinedAt: memberJoinedAt.Time,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	if room.ID == "" {
		return nil, nil
	}

	return &room, nil
}

func (s *SQLiteChatStore) GetUserRooms(ctx context.Context, username string) ([]models.Room, error) {
	query := `
	WITH my_rooms AS
	(SELECT r.id, r.name, r.description, r.type, r.created_by, r.last_message_id, r.created_at, r.updated_at
	FROM rooms AS r
	INNER JOIN room_members AS me ON r.id = me.room_id
	WHERE me.username = @username AND r.is_active = 1)
	SELECT mr.id, mr.name, mr.description, mr.type, mr.created_by, mr.created_at, mr.updated_at,
	rm.username, rm.role, rm.joined_at,
	m.id, m.sender, m.ciphertext, m.created_at
	FROM my_rooms AS mr
	INNER JOIN room_members AS rm ON mr.id = rm.room_id
	LEFT JOIN messages AS m ON m.id = mr.last_message_id
	ORDER BY mr.updated_at DESC, mr.id ASC, rm.joined_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sql.Named("username", username))
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	roomMap := make(map[string]*models.Room)

	for rows.Next() {
		var (
			roomID     string
			member     models.RoomMember
			msgID      sql.NullInt64
			msgSender  sql.NullString
			ciphertext sql.NullString
			msgSentAt  sql.NullTime
		)
		var scanned models.Room
		if err := rows.Scan(
			&roomID, &scanned.Name, &scanned.Description, &scanned.Type,
			&scanned.CreatedBy, &scanned.CreatedAt, &scanned.UpdatedAt,
			&member.Username, &member.Role, &member.JoinedAt,
			&msgID, &msgSender, &ciphertext, &msgSentAt,
		); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		room, exists := roomMap[roomID]
		if !exists {
			scanned.ID = roomID
			scanned.IsActive = true
			scanned.Members = []models.RoomMember{}
			if msgID.Valid {
				scanned.LastMessage = &models.MessagePreview{
					ID:      int(msgID.Int64),
					Sender:  msgSender.String,
					Content: s.decryptOrFallback(int(msgID.Int64), ciphertext.String),
					SentAt:  msgSentAt.Time,
				}
			}
			rooms = append(rooms, scanned)
			room = &rooms[len(rooms)-1]
			roomMap[roomID] = room
		}

		member.RoomID = roomID
		room.Members = append(room.Members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return rooms, nil
}

func (s *SQLiteChatStore) GetPublicRooms(ctx context.Context) ([]models.Room, error) {
	query := `
	SELECT r.id, r.name, r.description, r.type, r.created_by, r.created_at, r.updated_at,
	count(rm.username)
	FROM rooms AS r
	LEFT JOIN room_members AS rm ON r.id = rm.room_id
	WHERE r.type = @type AND r.is_active = 1
	GROUP BY r.id
	ORDER BY r.created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, sql.Named("type", string(models.PublicRoom)))
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room

	for rows.Next() {
		var room models.Room
		if err := rows.Scan(
			&room.ID, &room.Name, &room.Description, &room.Type, &room.CreatedBy,
			&room.CreatedAt, &room.UpdatedAt, &room.MemberCount,
		); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		room.IsActive = true
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return rooms, nil
}

func (s *SQLiteChatStore) IsRoomMember(ctx context.Context, roomID, username string) (bool, models.MemberRole, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT role FROM room_members WHERE room_id = @room_id AND username = @username`,
		sql.Named("room_id", roomID), sql.Named("username", username))

	var role models.MemberRole
	if err := row.Scan(&role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("scanning role: %w", err)
	}
	return true, role, nil
}

// activeRoomExists reports whether a room exists and is not soft-deleted.
func (s *SQLiteChatStore) activeRoomExists(ctx context.Context, roomID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM rooms WHERE id = @id AND is_active = 1`,
		sql.Named("id", roomID))

	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("scanning count: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteChatStore) JoinRoom(ctx context.Context, roomID, username string) (*models.Room, error) {
	exists, err := s.activeRoomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	// Add-if-absent in a single statement so concurrent joins cannot
	// produce a duplicate membership entry.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO room_members (room_id, username, role, joined_at)
		VALUES (@room_id, @username, @role, @now)
		ON CONFLICT (room_id, username) DO NOTHING`,
		sql.Named("room_id", roomID), sql.Named("username", username),
		sql.Named("role", string(models.Member)), sql.Named("now", time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert room_members): %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("RowsAffected: %w", err)
	}
	if n == 0 {
		return nil, ErrAlreadyMember
	}

	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (s *SQLiteChatStore) LeaveRoom(ctx context.Context, roomID, username string) error {
	exists, err := s.activeRoomExists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}

	// Removing a non-member is a no-op, not an error.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM room_members WHERE room_id = @room_id AND username = @username`,
		sql.Named("room_id", roomID), sql.Named("username", username))
	if err != nil {
		return fmt.Errorf("ExecContext(delete room_members): %w", err)
	}
	return nil
}

func (s *SQLiteChatStore) SendMessageToRoom(ctx context.Context, input MessageCreateInput) (*models.Message, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.activeRoomExists(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	ok, _, err := s.IsRoomMember(ctx, input.RoomID, input.Sender)
	if err != nil {
		return nil, fmt.Errorf("IsRoomMember: %w", err)
	}
	if !ok {
		return nil, ErrNotRoomMember
	}

	ciphertext, err := s.box.Encrypt(input.Content)
	if err != nil {
		return nil, fmt.Errorf("encrypting content: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BeginTx: %w", err)
	}
	defer tx.Rollback()

	sentAt := time.Now().UTC()
	row := tx.QueryRowContext(ctx,
		`INSERT INTO messages (room_id, sender, type, ciphertext, is_edited, created_at, updated_at)
		VALUES (@room_id, @sender, @type, @ciphertext, 0, @now, @now) RETURNING id`,
		sql.Named("room_id", input.RoomID), sql.Named("sender", input.Sender),
		sql.Named("type", string(input.Type)), sql.Named("ciphertext", ciphertext),
		sql.Named("now", sentAt))

	var id int
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE rooms SET last_message_id = @last_message_id, updated_at = @now WHERE id = @room_id`,
		sql.Named("last_message_id", id), sql.Named("now", sentAt),
		sql.Named("room_id", input.RoomID))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(update rooms): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	return &models.Message{
		ID:        id,
		RoomID:    input.RoomID,
		Sender:    input.Sender,
		Type:      input.Type,
		Content:   input.Content,
		SentAt:    sentAt,
		UpdatedAt: sentAt,
	}, nil
}

func (s *SQLiteChatStore) GetRoomMessages(ctx context.Context, roomID, requester string, page, limit int) (*models.MessagePage, error) {
	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("%w: page and limit must be positive", ErrInvalidInput)
	}

	exists, err := s.activeRoomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	ok, _, err := s.IsRoomMember(ctx, roomID, requester)
	if err != nil {
		return nil, fmt.Errorf("IsRoomMember: %w", err)
	}
	if !ok {
		return nil, ErrNotRoomMember
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM messages WHERE room_id = @room_id`,
		sql.Named("room_id", roomID))
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, fmt.Errorf("scanning count: %w", err)
	}

	// Newest first for offset paging; reversed below so each page reads
	// chronologically.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, sender, type, ciphertext, is_edited, edited_at, created_at, updated_at
		FROM messages
		WHERE room_id = @room_id
		ORDER BY id DESC
		LIMIT @limit OFFSET @offset`,
		sql.Named("room_id", roomID), sql.Named("limit", limit),
		sql.Named("offset", (page-1)*limit))
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}

	for rows.Next() {
		var (
			message    models.Message
			ciphertext string
			editedAt   sql.NullTime
		)
		if err := rows.Scan(&message.ID, &message.RoomID, &message.Sender, &message.Type,
			&ciphertext, &message.IsEdited, &editedAt, &message.SentAt, &message.UpdatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		if editedAt.Valid {
			t := editedAt.Time
			message.EditedAt = &t
		}
		message.Content = s.decryptOrFallback(message.ID, ciphertext)
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	if err := s.attachReadReceipts(ctx, messages); err != nil {
		return nil, err
	}

	// Reverse to chronological order within the page.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return &models.MessagePage{
		Messages:    messages,
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}

func (s *SQLiteChatStore) attachReadReceipts(ctx context.Context, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	index := make(map[int]*models.Message, len(messages))
	values := make([]interface{}, 0, len(messages))
	for i := range messages {
		index[messages[i].ID] = &messages[i]
		values = append(values, messages[i].ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, username, read_at FROM message_reads
		WHERE message_id IN (`+strings.Repeat("?,", len(values)-1)+`?)
		ORDER BY read_at ASC`,
		values...)
	if err != nil {
		return fmt.Errorf("QueryContext(select message_reads): %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			messageID int
			receipt   models.ReadReceipt
		)
		if err := rows.Scan(&messageID, &receipt.Username, &receipt.ReadAt); err != nil {
			return fmt.Errorf("rows.Scan: %w", err)
		}
		if message, ok := index[messageID]; ok {
			message.ReadBy = append(message.ReadBy, receipt)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows.Err: %w", err)
	}
	return nil
}

// getMessageByID fetches a message without decrypting it.
// It returns ErrMessageNotFound if the message does not exist.
func (s *SQLiteChatStore) getMessageByID(ctx context.Context, messageID int) (*models.Message, string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, sender, type, ciphertext, is_edited, edited_at, created_at, updated_at
		FROM messages WHERE id = @id`,
		sql.Named("id", messageID))

	var (
		message    models.Message
		ciphertext string
		editedAt   sql.NullTime
	)
	err := row.Scan(&message.ID, &message.RoomID, &message.Sender, &message.Type,
		&ciphertext, &message.IsEdited, &editedAt, &message.SentAt, &message.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrMessageNotFound
		}
		return nil, "", fmt.Errorf("scanning message: %w", err)
	}
	if editedAt.Valid {
		t := editedAt.Time
		message.EditedAt = &t
	}
	return &message, ciphertext, nil
}

func (s *SQLiteChatStore) EditMessage(ctx context.Context, messageID int, requester, content string) (*models.Message, error) {
	message, _, err := s.getMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.Sender != requester {
		return nil, ErrNotMessageSender
	}

	if content == "" || len([]rune(content)) > 1000 {
		return nil, fmt.Errorf("%w: content is required and cannot exceed 1000 characters", ErrInvalidInput)
	}

	ciphertext, err := s.box.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypting content: %w", err)
	}

	editedAt := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE messages SET ciphertext = @ciphertext, is_edited = 1, edited_at = @now, updated_at = @now
		WHERE id = @id`,
		sql.Named("ciphertext", ciphertext), sql.Named("now", editedAt),
		sql.Named("id", messageID))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(update messages): %w", err)
	}

	message.Content = content
	message.IsEdited = true
	message.EditedAt = &editedAt
	message.UpdatedAt = editedAt
	return message, nil
}

func (s *SQLiteChatStore) DeleteMessage(ctx context.Context, messageID int, requester string) error {
	message, _, err := s.getMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.Sender != requester {
		return ErrNotMessageSender
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("BeginTx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM messages WHERE id = @id`, sql.Named("id", messageID))
	if err != nil {
		return fmt.Errorf("ExecContext(delete messages): %w", err)
	}

	// Recompute the room's last-message pointer so it never dangles.
	_, err = tx.ExecContext(ctx,
		`UPDATE rooms SET last_message_id =
		(SELECT max(id) FROM messages WHERE room_id = @room_id)
		WHERE id = @room_id`,
		sql.Named("room_id", message.RoomID))
	if err != nil {
		return fmt.Errorf("ExecContext(update rooms): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Commit: %w", err)
	}
	return nil
}

func (s *SQLiteChatStore) MarkRoomMessagesRead(ctx context.Context, roomID, username string) (int, time.Time, error) {
	exists, err := s.activeRoomExists(ctx, roomID)
	if err != nil {
		return 0, time.Time{}, err
	}
	if !exists {
		return 0, time.Time{}, ErrRoomNotFound
	}

	ok, _, err := s.IsRoomMember(ctx, roomID, username)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("IsRoomMember: %w", err)
	}
	if !ok {
		return 0, time.Time{}, ErrNotRoomMember
	}

	readAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, username, read_at)
		SELECT id, @username, @read_at FROM messages
		WHERE room_id = @room_id AND sender != @username
		ON CONFLICT (message_id, username) DO NOTHING`,
		sql.Named("username", username), sql.Named("read_at", readAt),
		sql.Named("room_id", roomID))
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ExecContext(insert message_reads): %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("RowsAffected: %w", err)
	}
	return int(n), readAt, nil
}

func (s *SQLiteChatStore) GetRoomMembers(ctx context.Context, roomID string) ([]models.RoomMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, username, role, joined_at FROM room_members
		WHERE room_id = @room_id
		ORDER BY joined_at ASC, username ASC`,
		sql.Named("room_id", roomID))
	if err != nil {
		return nil, fmt.Errorf("QueryContext(select room_members): %w", err)
	}
	defer rows.Close()

	var members []models.RoomMember
	for rows.Next() {
		var member models.RoomMember
		if err := rows.Scan(&member.RoomID, &member.Username, &member.Role, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return members, nil
}

// decryptOrFallback opens a message body, substituting FallbackContent
// when the ciphertext cannot be decrypted. Decryption failure is degraded
// mode, not an error: it must never fail a read path.
func (s *SQLiteChatStore) decryptOrFallback(messageID int, ciphertext string) string {
	content, err := s.box.Decrypt(ciphertext)
	if err != nil {
		s.logger.Warn("failed to decrypt message content, substituting fallback",
			slog.Int("message_id", messageID))
		return FallbackContent
	}
	return content
}
