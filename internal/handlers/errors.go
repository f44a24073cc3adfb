package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"schoollunch/internal/service"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal server error","code":"internal_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		slog.Error(logMsg, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: userMsg, Code: codeForStatus(status)})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}

// respondWithServiceError maps service errors onto HTTP statuses. Anything
// it does not recognise is a 500 whose cause is only logged.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *service.ValidationError
	switch {
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Code: CodeValidation, Fields: valErr.Fields})
	case errors.Is(err, service.ErrSelectionLocked):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeSelectionLocked})
	case errors.Is(err, service.ErrKidNotFound),
		errors.Is(err, service.ErrSelectionNotFound),
		errors.Is(err, service.ErrMenuItemNotFound),
		errors.Is(err, service.ErrHolidayNotFound),
		errors.Is(err, service.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrHolidayExists):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeConflict})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: CodeInvalidCredentials})
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrUnauthorized, Code: CodeUnauthorized})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: CodeForbidden})
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError,
			"request failed: "+r.Method+" "+r.URL.Path, err)
	}
}

// decodeJSON reads a JSON body into v. Malformed bodies come back as a
// ValidationError on "body".
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &service.ValidationError{Fields: map[string]string{"body": err.Error()}}
	}
	return nil
}

// pathID parses a positive integer path parameter
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Fields: map[string]string{name: "must be a positive integer"}}
	}
	return id, nil
}

// pathYearMonth parses the {year} and {month} path parameters. Range checks
// happen in the services.
func pathYearMonth(r *http.Request) (int, int, error) {
	fields := map[string]string{}
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		fields["year"] = "must be a number"
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		fields["month"] = "must be a number"
	}
	if len(fields) > 0 {
		return 0, 0, &service.ValidationError{Fields: fields}
	}
	return year, month, nil
}
