package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"clipmato/internal/api"
	"clipmato/internal/logging"
	"clipmato/internal/services"
	"clipmato/internal/upload"
)

// multipartMemory is the in-memory share of a multipart upload; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

const requestIDHeader = "X-Request-ID"

type apiServer struct {
	daemon *Daemon
	logger *slog.Logger
}

func newAPIServer(d *Daemon, logger *slog.Logger) *apiServer {
	return &apiServer{daemon: d, logger: logging.NewComponentLogger(logger, "api-server")}
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/progress/{id}", s.handleProgress)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/records/{id}", s.handleRecord)
	mux.HandleFunc("DELETE /api/records/{id}", s.handleRemove)
	mux.HandleFunc("POST /api/records/{id}/title", s.handleSelectTitle)
	mux.HandleFunc("POST /api/records/{id}/schedule", s.handleSchedule)
	mux.HandleFunc("POST /api/schedule/auto", s.handleAutoSchedule)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return withRequestID(mux)
}

// withRequestID tags each request context with the caller's X-Request-ID, or
// a fresh one, and echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.daemon.deps.Uploads.MaxBytes()
	if limit > 0 {
		// Room for the multipart envelope around the file part.
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.writeError(w, http.StatusRequestEntityTooLarge, upload.ErrTooLarge.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	removeSilence, err := parseRemoveSilence(r.FormValue("remove_silence"), s.daemon.cfg.Workflow.RemoveSilence)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "remove_silence must be a boolean")
		return
	}

	resp, err := s.daemon.uploads.Accept(r.Context(), header.Filename, header.Header.Get("Content-Type"), file, removeSilence)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func parseRemoveSilence(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "":
		return fallback, nil
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(value)
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.records.Progress(r.Context(), r.PathValue("id")))
}

func (s *apiServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.records.List(r.Context()))
}

func (s *apiServer) handleRecord(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.records.Describe(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	resp, err := s.daemon.records.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSelectTitle(w http.ResponseWriter, r *http.Request) {
	var req api.SelectTitleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.records.SelectTitle(r.Context(), r.PathValue("id"), req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id"), "selected_title": strings.TrimSpace(req.SelectedTitle)})
}

func (s *apiServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req api.ScheduleRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if err := s.daemon.records.Schedule(r.Context(), id, req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	view, err := s.daemon.records.Describe(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleAutoSchedule(w http.ResponseWriter, r *http.Request) {
	var req api.AutoScheduleRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	resp, err := s.daemon.records.AutoSchedule(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, upload.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, upload.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	_, message := services.Details(err)
	if status == http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, message)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
