package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/dmitrijs2005/workout/internal/logging"
	"github.com/dmitrijs2005/workout/internal/server/models"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const maxBodyBytes = 64 << 10

// Authenticator resolves a bearer token to a local user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// MessageService is the per-user message store.
type MessageService interface {
	Create(ctx context.Context, userID int64, text string) (*models.Message, error)
	List(ctx context.Context, userID int64) ([]*models.Message, error)
	Delete(ctx context.Context, userID, messageID int64) error
}

type Handler struct {
	auth           Authenticator
	messages       MessageService
	logger         logging.Logger
	allowedOrigins []string
}

func NewHandler(a Authenticator, m MessageService, l logging.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		auth:           a,
		messages:       m,
		logger:         l.With("module", "rest"),
		allowedOrigins: allowedOrigins,
	}
}

// Router returns the complete HTTP handler: routes, auth, CORS, request ids
// and access logging.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", h.health).Methods(http.MethodGet)
	r.Handle("/auth/me", h.requireAuth(http.HandlerFunc(h.me))).Methods(http.MethodGet)
	r.Handle("/messages", h.requireAuth(http.HandlerFunc(h.createMessage))).Methods(http.MethodPost)
	r.Handle("/messages", h.requireAuth(http.HandlerFunc(h.listMessages))).Methods(http.MethodGet)
	r.Handle("/messages/{id}", h.requireAuth(http.HandlerFunc(h.deleteMessage))).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Not Found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "Method Not Allowed"})
	})

	return h.requestID(h.accessLog(cors.New(h.corsOptions()).Handler(r)))
}

func (h *Handler) corsOptions() cors.Options {
	opts := cors.Options{
		AllowedOrigins:   h.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{common.RequestIDHeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}
	// Browsers refuse a literal "*" on credentialed requests, so a wildcard
	// is served by echoing the caller's origin.
	if slices.Contains(h.allowedOrigins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(string) bool { return true }
	}
	return opts
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type meResponse struct {
	ID         int64   `json:"id"`
	Email      *string `json:"email"`
	CognitoSub string  `json:"cognito_sub"`
}

type createMessageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

type listMessagesResponse struct {
	Messages []messageResponse `json:"messages"`
}

type deleteMessageResponse struct {
	Deleted bool  `json:"deleted"`
	ID      int64 `json:"id"`
}

func toMessageResponse(m *models.Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		Message:   m.Text,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Message: "Workout API is running"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, meResponse{ID: user.ID, Email: user.Email, CognitoSub: user.CognitoSub})
}

func (h *Handler) createMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req createMessageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	msg, err := h.messages.Create(r.Context(), user.ID, req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	logging.FromContext(r.Context(), h.logger).Debug(r.Context(), "message created", "user_id", user.ID, "message_id", msg.ID)
	writeJSON(w, http.StatusOK, toMessageResponse(msg))
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	msgs, err := h.messages.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := listMessagesResponse{Messages: make([]messageResponse, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: message id must be an integer", common.ErrValidation))
		return
	}

	if err := h.messages.Delete(r.Context(), user.ID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteMessageResponse{Deleted: true, ID: id})
}
