package handlers

import (
	"log/slog"
	"net/http"
)

// PipelineHandler reports ingestion runs recorded in the execution store.
type PipelineHandler struct {
	documents DocumentService
	logger    *slog.Logger
}

func NewPipelineHandler(documents DocumentService, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{documents: documents, logger: logger}
}

// GetExecutionStatus returns the latest ingestion run for a document.
func (h *PipelineHandler) GetExecutionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		writeJSONError(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	result, ok := h.documents.Status(id)
	if !ok {
		writeJSONError(w, "No ingestion run recorded for this document", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
