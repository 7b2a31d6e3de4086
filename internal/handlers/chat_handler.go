package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/aptihub/chatetl/internal/interfaces"
)

// ResponseGenerator is the response service plus access to the user's
// conversation history for prompt assembly.
type ResponseGenerator interface {
	interfaces.ResponseService
	PreviousContext(userID string) string
}

// ChatHandler answers aptitude-test questions through the RAG pipeline
type ChatHandler struct {
	questions interfaces.QuestionService
	builder   interfaces.ContextBuilder
	generator ResponseGenerator
	logger    arbor.ILogger
}

// NewChatHandler creates the chat HTTP handler
func NewChatHandler(questions interfaces.QuestionService, builder interfaces.ContextBuilder,
	generator ResponseGenerator, logger arbor.ILogger) *ChatHandler {

	return &ChatHandler{
		questions: questions,
		builder:   builder,
		generator: generator,
		logger:    logger,
	}
}

type chatRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

// ChatHandler processes one question end to end: normalize and classify,
// retrieve and assemble context, generate the guarded answer.
// POST /api/chat
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	question, err := h.questions.Process(r.Context(), req.UserID, req.Question)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	previous := h.generator.PreviousContext(req.UserID)
	ragContext, err := h.builder.Build(r.Context(), req.UserID, question, previous)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Context build failed")
		WriteError(w, http.StatusInternalServerError, "failed to build context")
		return
	}

	response, err := h.generator.Generate(r.Context(), req.UserID, question, ragContext)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Response generation failed")
		WriteError(w, http.StatusInternalServerError, "failed to generate response")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"answer":           response.Answer,
		"quality":          response.Quality,
		"confidence":       response.Confidence,
		"documents_used":   response.DocumentsUsed,
		"template":         response.Template,
		"fallback":         response.Fallback,
		"duration_ms":      response.DurationMS,
		"category":         question.Category,
		"intent":           question.Intent,
		"keywords":         question.Keywords,
		"estimated_tokens": ragContext.EstimatedTokens,
	})
}
