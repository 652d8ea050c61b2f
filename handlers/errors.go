package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/serisow/docqa/orchestrator"
	"github.com/serisow/docqa/pipeline"
	"github.com/serisow/docqa/services/tts_service"
	"github.com/serisow/docqa/store"
)

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	var stageErr *pipeline.StageError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrTextNotReady),
		errors.Is(err, orchestrator.ErrEmptyQuestion),
		errors.Is(err, tts_service.ErrNothingToSay):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrAlreadySet):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrDispatcherClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &stageErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func documentID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
