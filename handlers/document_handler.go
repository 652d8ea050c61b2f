package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/serisow/docqa/pipeline"
	"github.com/serisow/docqa/pipeline_type"
)

const maxUploadSize = 32 << 20

type DocumentService interface {
	CreateDocument(ctx context.Context, filename string, content []byte) (*pipeline_type.Document, error)
	Document(ctx context.Context, documentID int64) (*pipeline_type.Document, error)
	Documents(ctx context.Context) ([]*pipeline_type.Document, error)
	Interactions(ctx context.Context, documentID int64) ([]*pipeline_type.Interaction, error)
	Ask(ctx context.Context, documentID int64, question string) (*pipeline_type.Interaction, error)
	Status(documentID int64) (*pipeline.ExecutionResult, bool)
}

type IngestionDispatcher interface {
	Submit(documentID int64) error
}

type DocumentHandler struct {
	documents  DocumentService
	dispatcher IngestionDispatcher
	storageDir string
	logger     *slog.Logger
}

func NewDocumentHandler(documents DocumentService, dispatcher IngestionDispatcher, storageDir string, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents:  documents,
		dispatcher: dispatcher,
		storageDir: storageDir,
		logger:     logger,
	}
}

// Upload stores the file, keeps a copy for static serving and starts
// ingestion in the background. The response does not wait for it.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Received file upload request")

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSONError(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "Failed to get file from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	if buf.Len() == 0 {
		writeJSONError(w, "Uploaded file is empty", http.StatusBadRequest)
		return
	}

	doc, err := h.documents.CreateDocument(r.Context(), filepath.Base(header.Filename), buf.Bytes())
	if err != nil {
		h.logger.Error("Failed to store document",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		writeJSONError(w, "Failed to store document", http.StatusInternalServerError)
		return
	}

	h.saveCopy(doc)

	if err := h.dispatcher.Submit(doc.ID); err != nil {
		h.logger.Error("Failed to dispatch ingestion",
			slog.Int64("document_id", doc.ID),
			slog.String("error", err.Error()))
		writeJSONError(w, "Document stored but processing could not be started", errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) saveCopy(doc *pipeline_type.Document) {
	ext := filepath.Ext(doc.Filename)
	if ext == "" {
		ext = ".pdf"
	}
	directory := filepath.Join(h.storageDir, "docs")
	if err := os.MkdirAll(directory, 0755); err != nil {
		h.logger.Warn("Failed to create docs directory", slog.String("error", err.Error()))
		return
	}
	target := filepath.Join(directory, fmt.Sprintf("%d%s", doc.ID, ext))
	if err := os.WriteFile(target, doc.Content, 0644); err != nil {
		h.logger.Warn("Failed to save document copy",
			slog.Int64("document_id", doc.ID),
			slog.String("error", err.Error()))
	}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.Documents(r.Context())
	if err != nil {
		h.logger.Error("Failed to list documents", slog.String("error", err.Error()))
		writeJSONError(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		writeJSONError(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	interactions, err := h.documents.Interactions(r.Context(), id)
	if err != nil {
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, interactions)
}

func (h *DocumentHandler) Query(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		writeJSONError(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	var requestBody struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	interaction, err := h.documents.Ask(r.Context(), id, requestBody.Query)
	if err != nil {
		status := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Query failed",
				slog.Int64("document_id", id),
				slog.String("error", err.Error()))
		}
		writeJSONError(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, interaction)
}
