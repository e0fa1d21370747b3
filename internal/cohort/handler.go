package cohort

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"series-orderer/internal/platform/logger"
	"series-orderer/internal/platform/metrics"
	"series-orderer/internal/series"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Handler exposes cohort HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes registers the cohort endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/hash", h.Hash)
	r.Route("/patients", func(r chi.Router) {
		r.Post("/", h.AddPatients)
		r.Get("/", h.ListPatients)
		r.Route("/{patient_id}/studies", func(r chi.Router) {
			r.Post("/", h.AddStudies)
			r.Get("/", h.ListStudies)
			r.Post("/{study_id}/series", h.IngestSeries)
			r.Get("/{study_id}/series", h.GetSeries)
		})
	})
}

// AddPatients handles POST /patients.
// Body: [{"id": "p1", "name": "..."}].
func (h *Handler) AddPatients(w http.ResponseWriter, r *http.Request) {
	var patients []Patient
	if !h.decode(w, r, &patients) {
		return
	}

	added, err := h.svc.AddPatients(r.Context(), patients)
	if err != nil {
		h.writeError(w, "add patients failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

// ListPatients handles GET /patients.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.svc.ListPatients(r.Context())
	if err != nil {
		h.writeError(w, "list patients failed", err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// AddStudies handles POST /patients/{patient_id}/studies.
func (h *Handler) AddStudies(w http.ResponseWriter, r *http.Request) {
	patientID := PatientID(chi.URLParam(r, "patient_id"))

	var studies []Study
	if !h.decode(w, r, &studies) {
		return
	}

	added, err := h.svc.AddStudies(r.Context(), patientID, studies)
	if err != nil {
		h.writeError(w, "add studies failed", err, slog.String("patient_id", string(patientID)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

// ListStudies handles GET /patients/{patient_id}/studies.
func (h *Handler) ListStudies(w http.ResponseWriter, r *http.Request) {
	patientID := PatientID(chi.URLParam(r, "patient_id"))

	studies, err := h.svc.ListStudies(r.Context(), patientID)
	if err != nil {
		h.writeError(w, "list studies failed", err, slog.String("patient_id", string(patientID)))
		return
	}
	writeJSON(w, http.StatusOK, studies)
}

// IngestSeries handles POST /patients/{patient_id}/studies/{study_id}/series.
// Body: a JSON array of series records. The response carries the full ordered
// list plus the conflicts and rejections of this batch.
func (h *Handler) IngestSeries(w http.ResponseWriter, r *http.Request) {
	patientID := PatientID(chi.URLParam(r, "patient_id"))
	studyID := StudyID(chi.URLParam(r, "study_id"))

	var incoming []series.Record
	if !h.decode(w, r, &incoming) {
		return
	}

	res, err := h.svc.IngestSeries(r.Context(), patientID, studyID, incoming)
	if err != nil {
		h.writeError(w, "ingest series failed", err,
			slog.String("patient_id", string(patientID)),
			slog.String("study_id", string(studyID)))
		return
	}

	log := h.requestLog(r)
	for _, c := range res.Conflicts {
		log.Warn("series dropped duplicate id",
			slog.String("study_id", string(studyID)),
			slog.String("series_id", string(c.ID)),
			slog.String("kept_path", c.Kept.Path),
			slog.String("dropped_path", c.Dropped.Path))
	}
	for _, rej := range res.Rejected {
		log.Warn("series rejected",
			slog.String("study_id", string(studyID)),
			slog.String("series_id", string(rej.ID)),
			slog.String("reason", rej.Reason))
	}
	log.Debug("series merged",
		slog.String("patient_id", string(patientID)),
		slog.String("study_id", string(studyID)),
		slog.Int("added", res.Added),
		slog.Int("total", len(res.Series)))

	if h.metrics != nil {
		h.metrics.AddMerged(res.Added)
		h.metrics.AddConflicts(len(res.Conflicts))
		h.metrics.AddRejected(len(res.Rejected))
		h.metrics.IncSorts()
	}
	writeJSON(w, http.StatusOK, res)
}

// GetSeries handles GET /patients/{patient_id}/studies/{study_id}/series.
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	patientID := PatientID(chi.URLParam(r, "patient_id"))
	studyID := StudyID(chi.URLParam(r, "study_id"))

	ordered, err := h.svc.OrderedSeries(r.Context(), patientID, studyID)
	if err != nil {
		h.writeError(w, "get series failed", err,
			slog.String("patient_id", string(patientID)),
			slog.String("study_id", string(studyID)))
		return
	}
	if h.metrics != nil {
		h.metrics.IncSorts()
	}
	writeJSON(w, http.StatusOK, ordered)
}

// Hash handles GET /hash?s=... and reports the tie-break hash of s.
func (h *Handler) Hash(w http.ResponseWriter, r *http.Request) {
	s := r.URL.Query().Get("s")
	writeJSON(w, http.StatusOK, map[string]any{"input": s, "hash": series.Hash(s)})
}

// requestLog returns the handler logger tagged with the request id, if any.
func (h *Handler) requestLog(r *http.Request) *slog.Logger {
	if id := logger.RequestID(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Debug("invalid request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrPatientNotFound), errors.Is(err, ErrStudyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrEmptyID):
		status = http.StatusBadRequest
	}

	attrs = append(attrs, slog.String("error", err.Error()))
	if status == http.StatusInternalServerError {
		h.log.Error(msg, attrs...)
	} else {
		h.log.Info(msg, attrs...)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
