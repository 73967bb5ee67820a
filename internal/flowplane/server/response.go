package server

import (
	"encoding/json"
	"net/http"

	"github.com/flowplane/flowplane/internal/flowplane/apierror"
	"github.com/flowplane/flowplane/pkg/logger"
)

// envelope is the common response shape every handler writes.
type envelope struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

func writeJSON(w http.ResponseWriter, log *logger.EnvoyLogger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("failed to encode JSON response")
	}
}

func writeData(w http.ResponseWriter, log *logger.EnvoyLogger, statusCode int, data interface{}) {
	writeJSON(w, log, statusCode, envelope{Success: true, Data: data})
}

func writeDataWithWarnings(w http.ResponseWriter, log *logger.EnvoyLogger, statusCode int, data interface{}, warnings []string) {
	writeJSON(w, log, statusCode, envelope{Success: true, Data: data, Warnings: warnings})
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, log *logger.EnvoyLogger, err error) {
	apiErr := apierror.As(err)
	if apiErr.Kind == apierror.KindInternal {
		log.WithError(err).Error("unhandled error")
	}
	writeJSON(w, log, apiErr.Map(), envelope{Success: false, Error: apiErr.Message})
}
