package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"echofm/core/auth"
	"echofm/logger"
	"echofm/model"
)

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login request body. Username may also carry an email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse returns the issued token and basic account info.
type AuthResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// RegisterHandler handles POST /api/auth/register.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	existing, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		logger.Error("Failed to check username", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash password", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		logger.Error("Failed to create user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, user.Username)
	if err != nil {
		logger.Error("Failed to issue token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}

// LoginHandler handles POST /api/auth/login.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	var (
		user *model.User
		err  error
	)
	if strings.Contains(req.Username, "@") {
		user, err = h.users.GetUserByEmail(r.Context(), req.Username)
	} else {
		user, err = h.users.GetUserByUsername(r.Context(), req.Username)
	}
	if err != nil {
		logger.Error("Failed to look up user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, user.Username)
	if err != nil {
		logger.Error("Failed to issue token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}
