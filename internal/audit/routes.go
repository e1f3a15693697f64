package audit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/tascam-hub-go/internal/api"
	"github.com/strefethen/tascam-hub-go/internal/apperrors"
)

// validEventLevels defines all valid event levels for query filters.
var validEventLevels = map[string]EventLevel{
	"DEBUG": EventLevelDebug,
	"INFO":  EventLevelInfo,
	"WARN":  EventLevelWarn,
	"ERROR": EventLevelError,
}

// RegisterRoutes wires event log routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/api/events", api.Handler(queryEvents(service)))
	router.Method(http.MethodGet, "/api/events/{event_id}", api.Handler(getEvent(service)))
}

// queryEvents retrieves events with optional filters.
// GET /api/events
func queryEvents(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		filters, err := parseQueryFilters(r)
		if err != nil {
			return err
		}

		events, total, hasMore, err := service.QueryEvents(filters)
		if err != nil {
			return apperrors.NewInternalError("Failed to query events")
		}

		formatted := make([]map[string]any, 0, len(events))
		for _, event := range events {
			formatted = append(formatted, formatEvent(&event))
		}

		pagination := &api.Pagination{
			Total:   total,
			Limit:   filters.Limit,
			Offset:  filters.Offset,
			HasMore: hasMore,
		}
		return api.ListResponse(w, r, http.StatusOK, "events", formatted, pagination)
	}
}

// getEvent retrieves a single event by ID.
// GET /api/events/{event_id}
func getEvent(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		eventID := chi.URLParam(r, "event_id")

		event, err := service.GetEvent(eventID)
		if err != nil {
			var notFoundErr *EventNotFoundError
			if errors.As(err, &notFoundErr) {
				return apperrors.NewAppError(apperrors.ErrorCodeEventNotFound, "Event not found", 404, map[string]any{
					"event_id": eventID,
				})
			}
			return apperrors.NewInternalError("Failed to get event")
		}

		return api.SingleResponse(w, r, http.StatusOK, "event", formatEvent(event))
	}
}

// parseQueryFilters extracts and validates query parameters for event filtering.
func parseQueryFilters(r *http.Request) (EventQueryFilters, error) {
	filters := EventQueryFilters{
		Limit:  DefaultQueryLimit,
		Offset: 0,
	}

	query := r.URL.Query()

	// Parse 'from' (inclusive start datetime)
	if from := query.Get("from"); from != "" {
		if _, err := time.Parse(time.RFC3339, from); err != nil {
			return filters, apperrors.NewValidationError("invalid 'from' datetime format, expected ISO 8601", map[string]any{"from": from})
		}
		filters.StartDate = &from
	}

	// Parse 'to' (inclusive end datetime)
	if to := query.Get("to"); to != "" {
		if _, err := time.Parse(time.RFC3339, to); err != nil {
			return filters, apperrors.NewValidationError("invalid 'to' datetime format, expected ISO 8601", map[string]any{"to": to})
		}
		filters.EndDate = &to
	}

	// Parse 'type'
	if eventType := query.Get("type"); eventType != "" {
		filters.Type = &eventType
	}

	// Parse 'level'
	if level := query.Get("level"); level != "" {
		parsedLevel, ok := validEventLevels[level]
		if !ok {
			return filters, apperrors.NewValidationError("invalid level", map[string]any{
				"level":        level,
				"valid_levels": []string{"DEBUG", "INFO", "WARN", "ERROR"},
			})
		}
		filters.Level = &parsedLevel
	}

	// Parse 'command'
	if command := query.Get("command"); command != "" {
		filters.Command = &command
	}

	// Parse 'limit' (1-1000, default 100)
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > MaxQueryLimit {
			return filters, apperrors.NewValidationError("invalid limit, must be between 1 and 1000", map[string]any{
				"limit": limitStr,
			})
		}
		filters.Limit = limit
	}

	// Parse 'offset' (>= 0, default 0)
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return filters, apperrors.NewValidationError("invalid offset, must be >= 0", map[string]any{
				"offset": offsetStr,
			})
		}
		filters.Offset = offset
	}

	return filters, nil
}

// formatEvent formats a PlayerEvent for JSON response.
func formatEvent(event *PlayerEvent) map[string]any {
	result := map[string]any{
		"event_id":  event.EventID,
		"timestamp": event.Timestamp.UTC().Format(time.RFC3339),
		"type":      event.Type,
		"level":     string(event.Level),
		"message":   event.Message,
	}

	if event.RequestID != nil {
		result["request_id"] = *event.RequestID
	}
	if event.Command != nil {
		result["command"] = *event.Command
	}

	if len(event.Payload) > 0 {
		result["payload"] = event.Payload
	}

	return result
}
