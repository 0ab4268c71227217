package web

// errors.go turns errors into user-facing messages and responses.
//
// Every handler failure goes through respondError, which logs the
// technical error with the request id and answers with a message the user
// can act on, in the form the client asked for (datastar fragment, JSON or
// plain text).
//
// # Error Codes
//
// File errors (FILE001-FILE099):
//
//	FILE001 - File too large
//	FILE002 - Not readable as delimited text (ParseError)
//	FILE003 - Not UTF-8
//	FILE004 - No file selected, or the session has no upload
//	FILE005 - Empty file or header without rows
//
// Rendering (RND001-RND099):
//
//	RND001 - A chart failed to render; earlier charts are kept
//	RND002 - Too many renders in progress
//
// Weather (WTH001-WTH099):
//
//	WTH001 - City not found
//	WTH002 - Weather service unavailable
//
// Sentiment (SNT001): empty text.
//
// Iris (IRS001-IRS099):
//
//	IRS001 - Species not found
//	IRS002 - Image not found
//
// Requests (REQ001-REQ099, RATE001):
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//	REQ003 - Invalid request parameters
//	RATE001 - Rate limited
//
// ERR000 is the fallback; the log carries the original error.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/JonMunkholm/dataviz/internal/chart"
	"github.com/JonMunkholm/dataviz/internal/dataset"
	"github.com/JonMunkholm/dataviz/internal/iris"
	"github.com/JonMunkholm/dataviz/internal/logging"
	"github.com/JonMunkholm/dataviz/internal/sentiment"
	"github.com/JonMunkholm/dataviz/internal/weather"
	"github.com/JonMunkholm/dataviz/internal/web/templates"
)

// UserMessage is an error as shown to the user.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

var (
	// errNoUpload means the session has nothing to chart yet.
	errNoUpload = errors.New("no file provided")
	// errBadRequest wraps malformed parameters.
	errBadRequest = errors.New("invalid request")
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that reach us without a typed sentinel. The
// first case-insensitive substring match wins.
var errorPatterns = []errorPattern{
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
	{"request body too large", UserMessage{"The file is too large", "Upload a smaller file", "FILE001"}},
	{"file too large", UserMessage{"The file is too large", "Upload a smaller file", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Choose a CSV file to upload", "FILE004"}},
	{"invalid utf-8", UserMessage{"The file contains invalid characters", "Save the file with UTF-8 encoding", "FILE003"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Upload a CSV file with a header and data rows", "FILE005"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again",
	Code:    "ERR000",
}

// MapError converts err into a UserMessage. Typed errors are checked
// before the pattern table.
func MapError(err error) UserMessage {
	if err == nil {
		return defaultMessage
	}

	var (
		parseErr  *dataset.ParseError
		renderErr *chart.RenderFailure
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &sizeErr), errors.Is(err, dataset.ErrTooLarge):
		return UserMessage{"The file is too large", "Upload a smaller file", "FILE001"}
	case errors.Is(err, dataset.ErrInvalidUTF8):
		return UserMessage{"The file contains invalid characters", "Save the file with UTF-8 encoding", "FILE003"}
	case errors.Is(err, dataset.ErrEmpty), errors.Is(err, dataset.ErrNoRows):
		return UserMessage{"The file has no data rows", "Upload a CSV file with a header and data rows", "FILE005"}
	case errors.As(err, &parseErr):
		msg := "The file could not be read as delimited text"
		if parseErr.Line > 0 {
			msg = fmt.Sprintf("%s (line %d)", msg, parseErr.Line)
		}
		return UserMessage{msg, "Check that every row has the same number of fields", "FILE002"}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, errNoUpload):
		return UserMessage{"No file was selected", "Choose a CSV file to upload", "FILE004"}

	case errors.As(err, &renderErr):
		what := renderErr.Title
		if what == "" {
			what = renderErr.Chart.String()
		}
		return UserMessage{
			Message: fmt.Sprintf("%q could not be drawn", what),
			Action:  "The charts above were kept. Try other columns or options",
			Code:    "RND001",
		}
	case errors.Is(err, chart.ErrRenderBusy):
		return UserMessage{"Too many charts are rendering right now", "Please try again in a few seconds", "RND002"}

	case errors.Is(err, weather.ErrCityNotFound):
		return UserMessage{"City not found", "Check the spelling of the city name", "WTH001"}
	case errors.Is(err, weather.ErrUnavailable):
		return UserMessage{"The weather service is unavailable", "Please try again later", "WTH002"}

	case errors.Is(err, sentiment.ErrEmptyText):
		return UserMessage{"Please enter some text for analysis", "Type or paste a sentence", "SNT001"}

	case errors.Is(err, iris.ErrSpeciesNotFound):
		return UserMessage{"Species not found", "Use a species name from the dataset", "IRS001"}
	case errors.Is(err, iris.ErrImageNotFound):
		return UserMessage{"Image not found", "Request /species/ for this species first", "IRS002"}

	case errors.Is(err, context.Canceled):
		return UserMessage{"The request was cancelled", "Please try again", "REQ001"}
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{"The request timed out", "Try a smaller file or fewer charts", "REQ002"}
	case errors.Is(err, errBadRequest):
		return UserMessage{"Some request parameters are invalid", "Check the form values and try again", "REQ003"}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		parseErr *dataset.ParseError
		sizeErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &sizeErr), errors.Is(err, dataset.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &parseErr), errors.Is(err, http.ErrMissingFile), errors.Is(err, errNoUpload),
		errors.Is(err, sentiment.ErrEmptyText), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, weather.ErrCityNotFound), errors.Is(err, iris.ErrSpeciesNotFound), errors.Is(err, iris.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, chart.ErrRenderBusy), errors.Is(err, weather.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch MapError(err).Code {
	case "FILE001":
		return http.StatusRequestEntityTooLarge
	case "FILE003", "FILE004", "FILE005":
		return http.StatusBadRequest
	case "RATE001":
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

func errorResponse(msg UserMessage) ErrorResponse {
	return ErrorResponse{Error: msg.Message, Action: msg.Action, Code: msg.Code}
}

// respondError logs err and answers with its user message in the form the
// client expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := MapError(err)
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	switch {
	case isDatastar(r):
		sse := datastar.NewSSE(w, r)
		if perr := sse.PatchElementTempl(templates.GalleryError(errorView(msg))); perr != nil {
			_ = sse.ConsoleError(perr)
		}
	case wantsJSON(r):
		writeJSONStatus(w, status, errorResponse(msg))
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	}
}

func errorView(msg UserMessage) *templates.ErrorView {
	return &templates.ErrorView{Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// isDatastar reports whether the request came from a datastar action.
func isDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

// wantsJSON reports whether the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}
