package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/finbot/internal/api/middleware"
	"github.com/dvloznov/finbot/internal/assistant"
	"github.com/dvloznov/finbot/internal/chat"
	"github.com/dvloznov/finbot/internal/logger"
)

// ConversationSource returns the caller's conversation.
type ConversationSource interface {
	Get(ctx context.Context, userID string) (*chat.Conversation, error)
}

// ChatHandler handles the chat endpoints.
type ChatHandler struct {
	conversations ConversationSource
	maxImageBytes int64
}

// NewChatHandler creates a chat handler. Images larger than maxImageBytes
// after decoding are rejected.
func NewChatHandler(conversations ConversationSource, maxImageBytes int64) *ChatHandler {
	return &ChatHandler{conversations: conversations, maxImageBytes: maxImageBytes}
}

func (h *ChatHandler) conversation(w http.ResponseWriter, r *http.Request) (*chat.Conversation, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	conv, err := h.conversations.Get(r.Context(), userID)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to open conversation")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to open conversation")
		return nil, false
	}
	return conv, true
}

// SendMessage handles POST /api/chat/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}

	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, conv.SendText(r.Context(), req.Message))
}

// SendImage handles POST /api/chat/images
func (h *ChatHandler) SendImage(w http.ResponseWriter, r *http.Request) {
	if h.maxImageBytes > 0 {
		// base64 inflates by 4/3; leave room for the JSON envelope.
		r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes*4/3+64<<10)
	}

	var req struct {
		ImageBase64 string `json:"image_base64"`
		MIMEType    string `json:"mime_type"`
		Caption     string `json:"caption"`
	}
	if err := decode(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	img, err := assistant.DecodeBase64Image(req.ImageBase64, req.MIMEType)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.maxImageBytes > 0 && int64(len(img.Data)) > h.maxImageBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}

	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, conv.SendImage(r.Context(), img, req.Caption))
}

// ListTurns handles GET /api/chat/turns
func (h *ChatHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	turns := conv.Turns()
	if turns == nil {
		turns = []chat.Turn{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"turns": turns,
		"count": len(turns),
	})
}

// NewConversation handles DELETE /api/chat
func (h *ChatHandler) NewConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	conv.NewConversation()
	w.WriteHeader(http.StatusNoContent)
}
