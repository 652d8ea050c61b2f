package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/serisow/docqa/orchestrator"
)

type Narrator interface {
	Narrate(ctx context.Context, text string) (string, error)
}

// AudioHandler narrates on demand. These clips are not stored on the
// document.
type AudioHandler struct {
	documents DocumentService
	narrator  Narrator
	logger    *slog.Logger
}

func NewAudioHandler(documents DocumentService, narrator Narrator, logger *slog.Logger) *AudioHandler {
	return &AudioHandler{documents: documents, narrator: narrator, logger: logger}
}

type audioResponse struct {
	AudioPath string `json:"audio_path"`
	Message   string `json:"message"`
}

// GenerateDocumentAudio narrates the full extracted text of a document.
func (h *AudioHandler) GenerateDocumentAudio(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		writeJSONError(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	doc, err := h.documents.Document(r.Context(), id)
	if err != nil {
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}
	if !doc.TextReady() {
		writeJSONError(w, orchestrator.ErrTextNotReady.Error(), http.StatusBadRequest)
		return
	}

	h.narrate(w, r, *doc.TextContent, "Document audio generated")
}

// GenerateSelectionAudio narrates text passed as ?text= or as {"text": ...}.
func (h *AudioHandler) GenerateSelectionAudio(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" && r.Body != nil {
		var requestBody struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&requestBody); err == nil {
			text = requestBody.Text
		}
	}
	if strings.TrimSpace(text) == "" {
		writeJSONError(w, "No text provided", http.StatusBadRequest)
		return
	}

	h.narrate(w, r, text, "Selection audio generated")
}

func (h *AudioHandler) narrate(w http.ResponseWriter, r *http.Request, text, message string) {
	path, err := h.narrator.Narrate(r.Context(), text)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		h.logger.Error("Audio generation failed",
			slog.Int("text_length", len(text)),
			slog.String("error", err.Error()))
		writeJSONError(w, "Audio generation failed", status)
		return
	}
	writeJSON(w, http.StatusOK, audioResponse{AudioPath: path, Message: message})
}
