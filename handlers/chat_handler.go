package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sealroom/models"
	"sealroom/pkg/router"
	"sealroom/store"
)

type ChatHandler struct {
	chatStore store.ChatStore
}

func NewChatHandler(chatStore store.ChatStore) *ChatHandler {
	return &ChatHandler{chatStore: chatStore}
}

// chatError maps store sentinels to JSON error responses. Anything not
// mapped here is treated as an internal error by the router and never
// shown to the client.
func chatError(err error) error {
	switch {
	case errors.Is(err, store.ErrRoomNotFound), errors.Is(err, store.ErrMessageNotFound):
		return router.NewJsonError(http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotRoomMember), errors.Is(err, store.ErrNotMessageSender):
		return router.NewJsonError(http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrAlreadyMember):
		return router.NewJsonError(http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidInput):
		return router.NewJsonError(http.StatusBadRequest, err.Error())
	}
	return err
}

func (h *ChatHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) error {
	var payload CreateRoomPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return router.NewJsonError(http.StatusBadRequest, "invalid request body")
	}
	defer r.Body.Close()
	session := SessionFromRequest(r)

	room, err := h.chatStore.CreateRoom(r.Context(), store.RoomCreateInput{
		Name:        payload.Name,
		Description: payload.Description,
		Type:        payload.Type,
		Creator:     session.Username,
	})
	if err != nil {
		return chatError(err)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(room)
	return nil
}

func (h *ChatHandler) GetMyRoomsHandler(w http.ResponseWriter, r *http.Request) error {
	session := SessionFromRequest(r)

	rooms, err := h.chatStore.GetUserRooms(r.Context(), session.Username)
	if err != nil {
		return chatError(err)
	}

	if rooms == nil {
		rooms = []models.Room{}
	}

	json.NewEncoder(w).Encode(rooms)
	return nil
}

func (h *ChatHandler) GetPublicRoomsHandler(w http.ResponseWriter, r *http.Request) error {
	rooms, err := h.chatStore.GetPublicRooms(r.Context())
	if err != nil {
		return chatError(err)
	}

	if rooms == nil {
		rooms = []models.Room{}
	}

	json.NewEncoder(w).Encode(rooms)
	return nil
}

func (h *ChatHandler) GetRoomByIDHandler(w http.ResponseWriter, r *http.Request) error {
	roomID := r.PathValue("roomID")
	session := SessionFromRequest(r)

	// Existence is resolved before membership: a missing room is not found,
	// not forbidden, even for callers who were never members.
	room, err := h.chatStore.GetRoomByID(r.Context(), roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return router.NewJsonError(http.StatusNotFound, "room not found")
	}

	inRoom, _, err := h.chatStore.IsRoomMember(r.Context(), roomID, session.Username)
	if err != nil {
		return err
	}
	if !inRoom {
		return router.NewJsonError(http.StatusForbidden, "you are not a member of this room")
	}

	json.NewEncoder(w).Encode(room)
	return nil
}

func (h *ChatHandler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) error {
	roomID := r.PathValue("roomID")
	session := SessionFromRequest(r)

	room, err := h.chatStore.JoinRoom(r.Context(), roomID, session.Username)
	if err != nil {
		return chatError(err)
	}

	json.NewEncoder(w).Encode(room)
	return nil
}

func (h *ChatHandler) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) error {
	roomID := r.PathValue("roomID")
	session := SessionFromRequest(r)

	if err := h.chatStore.LeaveRoom(r.Context(), roomID, session.Username); err != nil {
		return chatError(err)
	}

	w.WriteHeader(http.StatusOK)
	return nil
}

func (h *ChatHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) error {
	roomID := r.PathValue("roomID")
	var payload SendMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return router.NewJsonError(http.StatusBadRequest, "invalid request body")
	}
	defer r.Body.Close()
	session := SessionFromRequest(r)

	message, err := h.chatStore.SendMessageToRoom(r.Context(), store.MessageCreateInput{
		RoomID:  roomID,
		Sender:  session.Username,
		Content: payload.Content,
		Type:    payload.Type,
	})
	if err != nil {
		return chatError(err)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(message)
	return nil
}

func (h *ChatHandler) GetRoomMessagesHandler(w http.ResponseWriter, r *http.Request) error {
	roomID := r.PathValue("roomID")
	session := SessionFromRequest(r)

	page, err := positiveQueryInt(r, "page", 1)
	if err != nil {
		return err
	}
	limit, err := positiveQueryInt(r, "limit", 50)
	if err != nil {
		return err
	}

	messagePage, err := h.chatStore.GetRoomMessages(r.Context(), roomID, session.Username, page, limit)
	if err != nil {
		return chatError(err)
	}

	json.NewEncoder(w).Encode(messagePage)
	return nil
}

func (h *ChatHandler) EditMessageHandler(w http.ResponseWriter, r *http.Request) error {
	messageID, err := messageIDFromRequest(r)
	if err != nil {
		return err
	}

	var payload EditMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return router.NewJsonError(http.StatusBadRequest, "invalid request body")
	}
	defer r.Body.Close()
	session := SessionFromRequest(r)

	message, err := h.chatStore.EditMessage(r.Context(), messageID, session.Username, payload.Content)
	if err != nil {
		return chatError(err)
	}

	json.NewEncoder(w).Encode(message)
	return nil
}

func (h *ChatHandler) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) error {
	messageID, err := messageIDFromRequest(r)
	if err != nil {
		return err
	}
	session := SessionFromRequest(r)

	if err := h.chatStore.DeleteMessage(r.Context(), messageID, session.Username); err != nil {
		return chatError(err)
	}

	w.WriteHeader(http.StatusOK)
	return nil
}

func (h *ChatHandler) ReadRoomMessagesHandler(w http.ResponseWriter, r *http.Request) error {
	roomID := r.PathValue("roomID")
	session := SessionFromRequest(r)

	marked, readAt, err := h.chatStore.MarkRoomMessagesRead(r.Context(), roomID, session.Username)
	if err != nil {
		return chatError(err)
	}

	json.NewEncoder(w).Encode(MarkReadResponse{
		MarkedRead: marked,
		ReadAt:     readAt.Format(time.RFC3339),
	})
	return nil
}

func messageIDFromRequest(r *http.Request) (int, error) {
	messageID, err := strconv.Atoi(r.PathValue("messageID"))
	if err != nil {
		return 0, router.NewJsonError(http.StatusBadRequest, "message id must be an integer")
	}
	return messageID, nil
}

// positiveQueryInt parses a query parameter as a positive integer,
// falling back to def when the parameter is absent.
func positiveQueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, router.NewJsonError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return v, nil
}
