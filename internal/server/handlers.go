package server

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/service"
)

// uploadField is the multipart form field carrying the transaction file.
const uploadField = "file"

// AnalysisIDHeader carries the id of the analysis that produced a report.
const AnalysisIDHeader = "X-Analysis-ID"

var errNoUpload = errors.New(`multipart field "file" is required`)

// APIHandlers exposes the analysis endpoints.
type APIHandlers struct {
	logger   *slog.Logger
	service  *service.AnalysisService
	maxBytes int64
}

// NewAPIHandlers constructs an APIHandlers instance. maxBytes bounds upload size.
func NewAPIHandlers(logger *slog.Logger, svc *service.AnalysisService, maxBytes int64) *APIHandlers {
	return &APIHandlers{
		logger:   logger,
		service:  svc,
		maxBytes: maxBytes,
	}
}

// handleAnalyze accepts a CSV either as multipart field "file" or as the raw body.
// The upload is streamed straight into the parser and never written to disk.
func (h *APIHandlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	body, closeFn, err := uploadReader(r)
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}
	defer closeFn()

	res, err := h.service.AnalyzeCSV(r.Context(), service.SourceUpload, body)
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}
	respondReport(w, res)
}

func (h *APIHandlers) handleAnalyzeStored(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !h.service.HasSource() {
		writeError(w, http.StatusServiceUnavailable, "graph source is not configured")
		return
	}

	res, err := h.service.AnalyzeStored(r.Context())
	if err != nil {
		h.logger.Error("stored analysis failed", "error", err, "requestId", requestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to analyze stored transactions")
		return
	}
	respondReport(w, res)
}

func (h *APIHandlers) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
	case errors.Is(err, errNoUpload):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Warn("rejected upload", "error", err, "requestId", requestIDFrom(r.Context()))
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// uploadReader locates the CSV payload within the request.
func uploadReader(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, func() {}, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, nil, errNoUpload
		}
		if err != nil {
			return nil, nil, err
		}
		if part.FormName() == uploadField {
			return part, func() { _ = part.Close() }, nil
		}
		_ = part.Close()
	}
}

func respondReport(w http.ResponseWriter, res domain.Result) {
	if res.AnalysisID != "" {
		w.Header().Set(AnalysisIDHeader, res.AnalysisID)
	}
	respondJSON(w, http.StatusOK, res)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
