package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/joelkehle/invoice-roi/internal/report"
	"github.com/joelkehle/invoice-roi/internal/roi"
	"github.com/joelkehle/invoice-roi/internal/scenario"
)

type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeFault maps a domain error to its status code. title names the failed
// operation in 500 responses; the underlying message is hidden in production.
func (s *Server) writeFault(w http.ResponseWriter, r *http.Request, err error, title string) {
	var (
		verr   *roi.ValidationError
		merr   *roi.MissingInputError
		rerr   *requestError
		render *report.RenderError
	)
	switch {
	case errors.As(err, &rerr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: rerr.Message, Details: rerr.Details})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Details: verr.Violations})
	case errors.As(err, &merr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing required inputs", Details: merr.Fields})
	case errors.Is(err, scenario.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "Scenario name is required")
	case errors.Is(err, scenario.ErrNotFound):
		writeError(w, http.StatusNotFound, "Scenario not found")
	case errors.Is(err, report.ErrNotFound):
		writeError(w, http.StatusNotFound, "Report not found")
	default:
		if errors.As(err, &render) {
			title = "Failed to generate report"
		}
		s.logger.Error(title,
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r)),
			zap.Error(err),
		)
		msg := err.Error()
		if s.opts.Production {
			msg = "Something went wrong"
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: title, Message: msg})
	}
}
