package web

// errors.go turns handler errors into responses.
//
// The technical error is logged with the request ID; the client only sees
// the mapped message, action and code from schema.MapError. API routes and
// clients asking for JSON get an ErrorResponse body, everyone else a plain
// text line.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/csvtools/internal/logging"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

var errMissingUpload = errors.New("empty file: request carried no CSV")

// Messages for failures that never reach schema.MapError.
var (
	msgNotFound = schema.UserMessage{
		Message: "Route not found",
		Action:  "Check the URL; GET /api/models lists the models",
		Code:    "HTTP404",
	}
	msgTooLarge = schema.UserMessage{
		Message: "The uploaded CSV is larger than the server accepts",
		Action:  "Split the file or raise SERVER_MAX_UPLOAD_SIZE",
		Code:    "HTTP413",
	}
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped message in the format the
// client expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := schema.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	respondMessage(w, r, userMsg, statusCode)
}

func respondMessage(w http.ResponseWriter, r *http.Request, msg schema.UserMessage, statusCode int) {
	if wantsJSON(r) {
		respondErrorJSON(w, msg, statusCode)
		return
	}
	http.Error(w, msg.Message+" ("+msg.Code+")", statusCode)
}

func respondErrorJSON(w http.ResponseWriter, msg schema.UserMessage, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
