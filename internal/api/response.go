package api

import (
	"encoding/json"
	"net/http"

	"github.com/strefethen/tascam-hub-go/internal/apperrors"
)

// ErrorResponse wraps errors in Stripe format.
type ErrorResponse struct {
	Error apperrors.StripeErrorBody `json:"error"`
}

// Pagination represents standard pagination metadata for list responses.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// WriteJSON sends a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteError serializes an AppError into the Stripe-style error response.
// Response format: {"error": {"type": "...", "code": "...", "message": "..."}}
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.EnsureAppError(err)

	response := ErrorResponse{
		Error: appErr.StripeErrorBody(),
	}

	_ = WriteJSON(w, appErr.StatusCode, response)
}

// SingleResponse writes a single resource response with a dynamic resource key.
// Example: SingleResponse(w, r, http.StatusOK, "event", event)
// Produces: {"request_id": "...", "event": {...}}
func SingleResponse(w http.ResponseWriter, r *http.Request, status int, key string, resource any) error {
	resp := map[string]any{
		"request_id": GetRequestID(r),
		key:          resource,
	}
	return WriteJSON(w, status, resp)
}

// ListResponse writes a collection response with a dynamic collection key and optional pagination.
// Example: ListResponse(w, r, http.StatusOK, "events", events, &Pagination{...})
// Produces: {"request_id": "...", "events": [...], "pagination": {...}}
func ListResponse(w http.ResponseWriter, r *http.Request, status int, key string, items any, pagination *Pagination) error {
	resp := map[string]any{
		"request_id": GetRequestID(r),
		key:          items,
	}
	if pagination != nil {
		resp["pagination"] = pagination
	}
	return WriteJSON(w, status, resp)
}

// ActionResponse writes a response for non-CRUD action endpoints.
// Example: ActionResponse(w, r, http.StatusOK, map[string]any{"command": "PLY", "accepted": true})
// Produces: {"request_id": "...", "result": {...}}
func ActionResponse(w http.ResponseWriter, r *http.Request, status int, result any) error {
	resp := map[string]any{
		"request_id": GetRequestID(r),
		"result":     result,
	}
	return WriteJSON(w, status, resp)
}
