package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"sealroom/models"
	"sealroom/pkg/router"
	"sealroom/store"
)

type UserHandler struct {
	store store.UserStore
}

func NewUserHandler(store store.UserStore) *UserHandler {
	return &UserHandler{store: store}
}

func (h *UserHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) error {
	var payload CreateUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return router.NewJsonError(http.StatusBadRequest, "invalid request body")
	}
	defer r.Body.Close()

	input := models.User{
		Username: payload.Username,
		Password: payload.Password,
		Name:     payload.Name,
		Avatar:   payload.Avatar,
	}

	if err := h.store.CreateUser(r.Context(), input); err != nil {
		if errors.Is(err, store.ErrConflictedUser) {
			return router.NewJsonError(http.StatusConflict, "user already exists")
		}
		return err
	}

	w.WriteHeader(http.StatusCreated)
	return nil
}

func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) error {
	session := SessionFromRequest(r)
	user, err := h.store.GetUserByUsername(r.Context(), session.Username)
	if err != nil {
		return fmt.Errorf("get user by username: %w", err)
	}

	if user == nil {
		return router.NewJsonError(http.StatusNotFound, "user not found")
	}

	json.NewEncoder(w).Encode(user)
	return nil
}

func (h *UserHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) error {
	var payload UpdateProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return router.NewJsonError(http.StatusBadRequest, "invalid request body")
	}
	defer r.Body.Close()
	session := SessionFromRequest(r)

	user, err := h.store.UpdateUser(r.Context(), session.Username, store.UserUpdateInput{
		Name:   payload.Name,
		Avatar: payload.Avatar,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return router.NewJsonError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	if user == nil {
		return router.NewJsonError(http.StatusNotFound, "user not found")
	}

	json.NewEncoder(w).Encode(user)
	return nil
}

func (h *UserHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) error {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if users == nil {
		users = []models.UserWithoutSecrets{}
	}

	json.NewEncoder(w).Encode(users)
	return nil
}

func (h *UserHandler) GetUserByUsernameHandler(w http.ResponseWriter, r *http.Request) error {
	username := r.PathValue("username")

	user, err := h.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		return fmt.Errorf("get user by username: %w", err)
	}

	if user == nil {
		return router.NewJsonError(http.StatusNotFound, "user not found")
	}

	json.NewEncoder(w).Encode(user)
	return nil
}
