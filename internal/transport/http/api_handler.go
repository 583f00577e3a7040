package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"nutriplay-engine/internal/app"
	"nutriplay-engine/internal/domain"
	"nutriplay-engine/internal/gateway"
)

// APIHandler serves the JSON read endpoints around the play channel.
type APIHandler struct {
	service *app.GameService
}

func NewAPIHandler(service *app.GameService) *APIHandler {
	return &APIHandler{service: service}
}

// Register mounts the endpoints on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /points", h.authed(h.points))
	mux.HandleFunc("GET /games", h.authed(h.games))
	mux.HandleFunc("GET /sessions", h.authed(h.sessions))
	mux.HandleFunc("GET /notifications", h.authed(h.notifications))
	mux.HandleFunc("POST /notifications/{id}/read", h.authed(h.markRead))
}

type stateView struct {
	StudentID     string                `json:"studentId"`
	Total         int                   `json:"total"`
	Confirmed     int                   `json:"confirmed"`
	Pending       []domain.PendingDelta `json:"pending"`
	Unread        int                   `json:"unread"`
	Notifications []domain.Notification `json:"notifications"`
	RefreshedAt   time.Time             `json:"refreshedAt,omitempty"`
	Stale         bool                  `json:"stale,omitempty"`
}

func newStateView(st domain.StudentState) stateView {
	return stateView{
		StudentID:     st.StudentID,
		Total:         st.Total(),
		Confirmed:     st.Confirmed,
		Pending:       st.Pending,
		Unread:        st.Unread(),
		Notifications: st.Notifications,
		RefreshedAt:   st.RefreshedAt,
	}
}

type handlerFunc func(ctx context.Context, studentID string, w http.ResponseWriter, r *http.Request)

// authed resolves the student from the bearer token and forwards the token to the backend.
func (h *APIHandler) authed(next handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		studentID, err := gateway.StudentID(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, err)
			return
		}
		next(gateway.WithToken(r.Context(), token), studentID, w, r)
	}
}

// points reconciles with the backend; when it is unreachable the local projection is
// returned marked stale.
func (h *APIHandler) points(ctx context.Context, studentID string, w http.ResponseWriter, _ *http.Request) {
	st, err := h.service.RefreshPoints(ctx, studentID)
	view := newStateView(st)
	if err != nil {
		log.Printf("refresh points for student %s: %v", studentID, err)
		view.Stale = true
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) games(ctx context.Context, _ string, w http.ResponseWriter, _ *http.Request) {
	games, err := h.service.Games(ctx)
	if err != nil {
		respondWithError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *APIHandler) sessions(ctx context.Context, _ string, w http.ResponseWriter, _ *http.Request) {
	records, err := h.service.History(ctx)
	if err != nil {
		respondWithError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *APIHandler) notifications(ctx context.Context, studentID string, w http.ResponseWriter, _ *http.Request) {
	st, err := h.service.RefreshNotifications(ctx, studentID)
	if err != nil {
		respondWithError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(st))
}

func (h *APIHandler) markRead(ctx context.Context, studentID string, w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, errors.New("missing notification id"))
		return
	}
	st, err := h.service.MarkNotificationRead(ctx, studentID, id)
	if err != nil {
		respondWithError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(st))
}

// bearerToken reads the token from the Authorization header, falling back to the
// token query parameter (browsers cannot set headers on WebSocket requests).
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func statusFor(err error) int {
	var apiErr *gateway.APIError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(w http.ResponseWriter, status int, err error) {
	log.Printf("api error (%d): %v", status, err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}
