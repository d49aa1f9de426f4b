package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"sealroom/models"
	"sealroom/pkg/cipher"
)

var (
	owner   = models.User{Username: "owner", Password: "password", Name: "Owner"}
	member1 = models.User{Username: "member1", Password: "password", Name: "Member 1"}
	member2 = models.User{Username: "member2", Password: "password", Name: "Member 2"}
)

type Fixture struct {
	userStore UserStore
	chatStore ChatStore
	authStore AuthStore
	box       *cipher.Box
	db        *sql.DB
	ctx       context.Context
	tearDown  func()
	t         *testing.T
}

func NewFixture(t *testing.T) *Fixture {
	ctx, cancel := context.WithCancel(context.Background())

	// A unique name per fixture keeps shared-cache in-memory databases
	// isolated between tests.
	db, err := sql.Open("sqlite3", "file:"+uuid.New().String()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}

	migrationfs := os.DirFS("../migrations")
	goose.SetBaseFS(migrationfs)

	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatal(err)
	}

	if err := goose.Up(db, "."); err != nil {
		t.Fatal(err)
	}

	key := make([]byte, cipher.KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	box, err := cipher.NewBox(key)
	if err != nil {
		t.Fatal(err)
	}

	userStore := NewSQLiteUserStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &Fixture{
		userStore: userStore,
		chatStore: NewSQLiteChatStore(db, box, logger),
		authStore: NewSQLiteAuthStore(db, userStore, []byte("test-secret")),
		box:       box,
		ctx:       ctx,
		db:        db,
		tearDown: func() {
			cancel()
			db.Close()
		},
		t: t,
	}

	return f
}

func seedUsers(f *Fixture, users ...models.User) {
	for _, u := range users {
		err := f.userStore.CreateUser(f.ctx, u)
		if err != nil {
			f.t.Fatal(err)
		}
	}
}

func seedRoom(f *Fixture, creator models.User, roomType models.RoomType, name string) *models.Room {
	room, err := f.chatStore.CreateRoom(f.ctx, RoomCreateInput{
		Name:    name,
		Type:    roomType,
		Creator: creator.Username,
	})
	if err != nil {
		f.t.Fatal(err)
	}
	return room
}

func seedMessages(f *Fixture, roomID string, sender models.User, contents ...string) []models.Message {
	messages := make([]models.Message, 0, len(contents))
	for _, content := range contents {
		message, err := f.chatStore.SendMessageToRoom(f.ctx, MessageCreateInput{
			RoomID:  roomID,
			Sender:  sender.Username,
			Content: content,
		})
		if err != nil {
			f.t.Fatal(err)
		}
		messages = append(messages, *message)
	}
	return messages
}

// roomLastMessageID reads the room's last-message pointer directly.
func roomLastMessageID(f *Fixture, roomID string) *int {
	row := f.db.QueryRowContext(f.ctx,
		`SELECT last_message_id FROM rooms WHERE id = ?`, roomID)
	var id sql.NullInt64
	if err := row.Scan(&id); err != nil {
		f.t.Fatal(err)
	}
	if !id.Valid {
		return nil
	}
	v := int(id.Int64)
	return &v
}

// messageCiphertext reads a message's stored body directly.
func messageCiphertext(f *Fixture, messageID int) string {
	row := f.db.QueryRowContext(f.ctx,
		`SELECT ciphertext FROM messages WHERE id = ?`, messageID)
	var ciphertext string
	if err := row.Scan(&ciphertext); err != nil {
		f.t.Fatal(err)
	}
	return ciphertext
}

func deactivateRoom(f *Fixture, roomID string) {
	_, err := f.db.ExecContext(f.ctx,
		`UPDATE rooms SET is_active = 0 WHERE id = ?`, roomID)
	if err != nil {
		f.t.Fatal(err)
	}
}
