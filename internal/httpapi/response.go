package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("encode response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, logger *zap.Logger, message string) {
	writeJSON(w, logger, http.StatusOK, messageResponse{Message: message})
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
