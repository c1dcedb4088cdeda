package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/logging"
	"github.com/JonMunkholm/csvtools/internal/scan"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

// DefaultMaxIssues caps the issues one validation response carries when
// neither the request nor SCAN_MAX_ERRORS sets a limit.
const DefaultMaxIssues = 1000

var msgBadQuery = schema.UserMessage{
	Message: "A query parameter has an invalid value",
	Action:  "max_errors must be a non-negative integer and strict_dates a boolean",
	Code:    "HTTP400",
}

var msgBusy = schema.UserMessage{
	Message: "The server is busy validating other files",
	Action:  "Retry in a few seconds",
	Code:    "HTTP503",
}

// ValidateResponse is the body of a successful validation request.
type ValidateResponse struct {
	Model   string       `json:"model"`
	Valid   bool         `json:"valid"`
	Summary scan.Summary `json:"summary"`
	Issues  []scan.Issue `json:"issues"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	templ.Handler(Catalogue(modelViews())).ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"models":      schema.Count(),
		"validations": s.slots.Status(),
	})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modelViews())
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := schema.Lookup(chi.URLParam(r, "model"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newModelView(m))
}

// handleValidate checks an uploaded CSV against a model. The body is either
// the raw CSV or a multipart form with the CSV in its "file" part.
//
// Query parameters:
//   - max_errors: cap on returned issues; 0 returns all
//   - strict_dates: also reject dates that are not on the calendar
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	m, err := schema.Lookup(chi.URLParam(r, "model"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	maxErrors, strict, err := s.validateQuery(r)
	if err != nil {
		logging.FromContext(ctx).Warn("bad validate query", "error", err)
		respondMessage(w, r, msgBadQuery, http.StatusBadRequest)
		return
	}

	if err := s.slots.Acquire(ctx); err != nil {
		logging.FromContext(ctx).Warn("validation rejected", "error", err, "status", s.slots.Status())
		respondMessage(w, r, msgBusy, http.StatusServiceUnavailable)
		return
	}
	defer s.slots.Release()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	body, err := uploadBody(r)
	if err != nil {
		s.respondUploadError(w, r, err)
		return
	}

	rd := csvio.NewReader(body, r.ContentLength, csvio.ReaderOptions{})
	if _, err := scan.CheckHeader(rd, m); err != nil {
		s.respondUploadError(w, r, err)
		return
	}

	logger := logging.WithFields(ctx, "model", m.Name())
	sc := scan.New(
		schema.NewRecordValidator(m, schema.ValidateOptions{StrictDates: strict}),
		scan.Options{MaxErrors: maxErrors, ContextCheckInterval: s.scan.ContextCheckInterval},
		logger,
	)
	issues := &scan.Collector{}
	sum, err := sc.Run(ctx, rd, scan.Handlers{Issues: issues})
	if err != nil {
		s.respondUploadError(w, r, err)
		return
	}

	logger.Info("validation finished",
		"processed", sum.Processed,
		"invalid", sum.Invalid,
		"issues", sum.Issues,
	)
	if issues.Issues == nil {
		issues.Issues = []scan.Issue{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{
		Model:   m.Name(),
		Valid:   sum.Invalid == 0,
		Summary: sum,
		Issues:  issues.Issues,
	})
}

func (s *Server) validateQuery(r *http.Request) (maxErrors int, strict bool, err error) {
	q := r.URL.Query()

	maxErrors = s.scan.MaxErrors
	if maxErrors == 0 {
		maxErrors = DefaultMaxIssues
	}
	if v := q.Get("max_errors"); v != "" {
		maxErrors, err = strconv.Atoi(v)
		if err != nil || maxErrors < 0 {
			return 0, false, fmt.Errorf("max_errors %q", v)
		}
	}
	if v := q.Get("strict_dates"); v != "" {
		strict, err = strconv.ParseBool(v)
		if err != nil {
			return 0, false, fmt.Errorf("strict_dates %q", v)
		}
	}
	return maxErrors, strict, nil
}

// respondUploadError picks the status for a failure while reading or
// scanning an upload.
func (s *Server) respondUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		logging.FromContext(r.Context()).Warn("upload too large", "limit", tooLarge.Limit)
		respondMessage(w, r, msgTooLarge, http.StatusRequestEntityTooLarge)
	case errors.Is(err, scan.ErrHeader):
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
	case errors.Is(err, csvio.ErrEmptyFile), errors.Is(err, errMissingUpload):
		s.respondError(w, r, err, http.StatusBadRequest)
	case r.Context().Err() != nil:
		s.respondError(w, r, err, http.StatusServiceUnavailable)
	default:
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// uploadBody returns the CSV stream of the request.
func uploadBody(r *http.Request) (io.Reader, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("read multipart body: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errMissingUpload
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart body: %w", err)
		}
		if part.FormName() == "file" {
			return part, nil
		}
	}
}
