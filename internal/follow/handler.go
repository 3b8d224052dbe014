package follow

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-social/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if targetID == userID {
		http.Error(w, "cannot follow yourself", http.StatusBadRequest)
		return
	}

	following, err := h.service.Toggle(r.Context(), userID, targetID)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(ToggleResponse{Following: following})
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, h.service.Followers)
}

func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, h.service.Following)
}

func (h *Handler) Suggested(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	users, err := h.service.Suggested(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []User{}
	}
	json.NewEncoder(w).Encode(users)
}

// listFor serves the followers/following lists, which differ only in the
// service call. The user ID comes from the path when present, otherwise the
// authenticated user is assumed.
func (h *Handler) listFor(w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context, userID int64) ([]User, error)) {

	var userID int64
	if raw := chi.URLParam(r, "userID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}
		userID = id
	} else {
		id, ok := middleware.UserID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		userID = id
	}

	users, err := fetch(r.Context(), userID)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []User{}
	}
	json.NewEncoder(w).Encode(users)
}
