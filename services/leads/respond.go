package leads

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"leadwizard/api/services/fields"
	"leadwizard/api/services/selection"
	"leadwizard/api/services/wizard"
)

// maxRequestBody limits the size of request bodies to prevent abuse.
const maxRequestBody = 1 << 20 // 1MB

// errorKind maps a domain error onto its HTTP representation.
type errorKind struct {
	target  error
	code    string
	message string
	status  int
}

// errorKinds is checked in order; the first match wins.
var errorKinds = []errorKind{
	{ErrSessionNotFound, "NOT_FOUND", "session not found", http.StatusNotFound},
	{ErrTooManySessions, "TOO_MANY_SESSIONS", "too many active form sessions, try again later", http.StatusServiceUnavailable},
	{selection.ErrUnknownGroup, "UNKNOWN_GROUP", "unknown selection group", http.StatusBadRequest},
	{wizard.ErrUnknownOption, "UNKNOWN_OPTION", "unknown option", http.StatusBadRequest},
	{fields.ErrUnknownField, "UNKNOWN_FIELD", "unknown field", http.StatusBadRequest},
	{fields.ErrWrongType, "INVALID_BODY", "field value has the wrong type", http.StatusBadRequest},
	{wizard.ErrUnknownStep, "UNKNOWN_STEP", "unknown step", http.StatusBadRequest},
}

// Visitor-facing messages of the two recoverable validation failures.
const (
	msgIncompleteSelection = "Please choose at least one option in every group"
	msgInvalidField        = "Please check the highlighted fields"
)

// writeWizardError answers with the representation of err. Validation
// failures carry the failing groups and fields plus the current view.
func writeWizardError(w http.ResponseWriter, r *http.Request, err error, view *wizard.View) {
	rid := reqID(r)

	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		code, msg := "INVALID_FIELD", msgInvalidField
		if verr.Kind == wizard.KindIncompleteSelection {
			code, msg = "INCOMPLETE_SELECTION", msgIncompleteSelection
		}
		slog.Debug("wizard validation failed", "requestId", rid, "kind", verr.Kind, "groups", verr.Groups, "fields", verr.Fields)
		body := map[string]any{
			"code":    code,
			"message": msg,
			"groups":  nonNil(verr.Groups),
			"fields":  nonNil(verr.Fields),
		}
		if view != nil {
			body["view"] = view
		}
		writeJSON(w, r, http.StatusUnprocessableEntity, body)
		return
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			slog.Warn("request rejected", "requestId", rid, "code", k.code, "error", err)
			writeErrorJSON(w, k.code, k.message, k.status)
			return
		}
	}

	// ErrAssemblyInvariant ends up here: a configuration bug, not bad input.
	slog.Error("wizard request failed", "requestId", rid, "error", err)
	writeErrorJSON(w, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// writeJSON marshals v and writes it with status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal response", "requestId", reqID(r), "error", err)
		writeErrorJSON(w, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		slog.Error("failed to write response", "requestId", reqID(r), "error", err)
	}
}

// decodeBody reads a size-limited JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeErrorJSON writes a structured JSON error response with a machine-readable
// code and a human-readable message. The code allows clients to programmatically
// distinguish between error types (e.g. retry on TOO_MANY_SESSIONS, don't retry on NOT_FOUND).
func writeErrorJSON(w http.ResponseWriter, errCode, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"code": errCode, "message": message})
}

// reqID extracts the request ID from context (set by requestIDMiddleware).
func reqID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}
