package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/likesorter/internal/shared"
)

const maxBodyBytes = 1 << 20

// apiError is the body of every failed API response.
type apiError struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Completed *int   `json:"completed,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, `{"error":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// statusFor maps an error to its HTTP status and the message shown to the user.
// fallback is used for anything unexpected, whose details are only logged.
func statusFor(err error, fallback string) (int, apiError) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized, apiError{Error: "Unauthorized", Message: "Your session has expired. Please log in again."}
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, apiError{
			Error:   "Forbidden",
			Message: "Spotify refused the request. Log out and log in again to grant the required permissions.",
		}
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, apiError{Error: "Bad request", Message: err.Error()}
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests, apiError{Error: fallback, Message: "Spotify rate limit reached. Please wait a moment and try again."}
	default:
		return http.StatusInternalServerError, apiError{Error: fallback}
	}
}

// fail writes the error response for err and logs it.
func (d *Dashboard) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, body := statusFor(err, fallback)
	d.writeFailure(w, r, err, status, body)
}

// failMutation is [Dashboard.fail] that also reports how many items were committed before the failure.
func (d *Dashboard) failMutation(w http.ResponseWriter, r *http.Request, err error, fallback string, completed int) {
	status, body := statusFor(err, fallback)
	if completed > 0 {
		body.Completed = &completed
	}
	d.writeFailure(w, r, err, status, body)
}

func (d *Dashboard) writeFailure(w http.ResponseWriter, r *http.Request, err error, status int, body apiError) {
	if status >= http.StatusInternalServerError {
		d.logger.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		d.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, body)
}

// stringList decodes either a single string or an array of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = stringList{one}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or an array of strings")
	}
	*l = many
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}
