package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"dealer-ledger/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type stockDetails struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
	AvailBoxes  int    `json:"available_boxes"`
	ReqBoxes    int    `json:"requested_boxes"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
		Details:   details,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps a service error onto its HTTP status. Internal errors are
// logged and their message hidden from the caller.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := core.ErrorCode(err)

	var stockErr *core.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		writeErrorDetails(w, r, err.Error(), code, http.StatusConflict, stockDetails{
			ProductID:   stockErr.ProductID,
			ProductName: stockErr.ProductName,
			Available:   stockErr.Available,
			Requested:   stockErr.Requested,
			AvailBoxes:  stockErr.AvailableBoxes,
			ReqBoxes:    stockErr.RequestedBoxes,
		})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), code, http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidInput):
		writeError(w, r, err.Error(), code, http.StatusBadRequest)
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, "internal server error", code, http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
