package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/smarthome-hub/internal/registry"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried in ErrorResponse.Code.
const (
	ErrCodeBadRequest          = "bad_request"
	ErrCodeNotFound            = "not_found"
	ErrCodeConflict            = "conflict"
	ErrCodeDeviceNotCompatible = "device_not_compatible"
	ErrCodeConnection          = "connection_error"
	ErrCodeUnavailable         = "unavailable"
	ErrCodeInternal            = "internal_error"
)

// errNotCompatible marks a device operation aimed at the wrong kind,
// such as reading the temperature of a socket.
var errNotCompatible = errors.New("device not compatible with operation")

// statusFor maps registry failures to responses. The first match wins.
var statusFor = []struct {
	target error
	status int
	code   string
}{
	{registry.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{registry.ErrDuplicate, http.StatusConflict, ErrCodeConflict},
	{registry.ErrInvalidName, http.StatusBadRequest, ErrCodeBadRequest},
	{registry.ErrInvalidDescription, http.StatusBadRequest, ErrCodeBadRequest},
	{registry.ErrInvalidServer, http.StatusBadRequest, ErrCodeBadRequest},
	{errNotCompatible, http.StatusConflict, ErrCodeDeviceNotCompatible},
	{registry.ErrConnection, http.StatusBadGateway, ErrCodeConnection},
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	//nolint:errcheck // The client may have gone; nothing to do about it
	json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, ErrorResponse{Status: status, Code: code, Message: message})
}

func badRequest(w http.ResponseWriter, message string) {
	fail(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// failRegistry answers with the response statusFor assigns to err. Anything
// unmapped is logged and hidden behind a bare 500.
func (s *Server) failRegistry(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range statusFor {
		if errors.Is(err, m.target) {
			fail(w, m.status, m.code, err.Error())
			return
		}
	}
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", requestID(r.Context()),
		"error", err,
	)
	fail(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}
