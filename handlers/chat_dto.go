package handlers

import (
	"sealroom/models"
)

type CreateRoomPayload struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        models.RoomType `json:"type"`
}

type SendMessagePayload struct {
	Content string             `json:"content"`
	Type    models.MessageType `json:"type"`
}

type EditMessagePayload struct {
	Content string `json:"content"`
}

type MarkReadResponse struct {
	MarkedRead int    `json:"marked_read"`
	ReadAt     string `json:"read_at"`
}
