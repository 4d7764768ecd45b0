package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fived/therapists/internal/auth"
	"github.com/fived/therapists/internal/questionnaire"
)

// ReportService renders and delivers printable analysis reports.
type ReportService interface {
	RenderPDF(rec Record) ([]byte, error)
	SendReport(ctx context.Context, rec Record) error
}

type Handler struct {
	svc     Service
	reports ReportService
	log     logrus.FieldLogger
}

func NewHandler(svc Service, reports ReportService, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, reports: reports, log: log}
}

type AnswersRequest struct {
	Answers AnswerSet `json:"answers"`
}

type AnswerRequest struct {
	Value string `json:"value"`
}

type SubmissionResponse struct {
	Analysis Record `json:"analysis"`
	Warning  string `json:"warning,omitempty"`
}

type SessionResponse struct {
	SessionView
	Answered int  `json:"answered"`
	Total    int  `json:"total"`
	Complete bool `json:"complete"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

func (h *Handler) GetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]questionnaire.Section{
		"sections": h.svc.Catalog().Sections(),
	})
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req AnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Score(req.Answers))
}

func (h *Handler) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	var req AnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	sub, err := h.svc.Submit(r.Context(), patientID, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse(sub))
}

func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	hist, err := h.svc.GetHistory(r.Context(), patientID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	trend, err := h.svc.Trend(r.Context(), patientID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupAnalysis(w, r)
	if !ok {
		return
	}
	pdf, err := h.reports.RenderPDF(*rec)
	if err != nil {
		h.log.WithError(err).WithField("analysis_id", rec.ID).Error("failed to render report")
		http.Error(w, "Report generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="analysis_%s.pdf"`, rec.ID))
	w.Write(pdf)
}

func (h *Handler) ShareReport(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupAnalysis(w, r)
	if !ok {
		return
	}
	if err := h.reports.SendReport(r.Context(), *rec); err != nil {
		h.log.WithError(err).WithField("analysis_id", rec.ID).Error("failed to share report")
		http.Error(w, "Sharing failed", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return
	}
	sess, err := h.svc.StartSession(r.Context(), patientID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.sessionResponse(sess.View()))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "sessionID")
	if !ok {
		return
	}
	sess, err := h.svc.Session(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionResponse(sess.View()))
}

func (h *Handler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "sessionID")
	if !ok {
		return
	}
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	questionID := chi.URLParam(r, "questionID")
	if err := h.svc.RecordAnswer(r.Context(), sessionID, questionID, req.Value); err != nil {
		h.writeError(w, err)
		return
	}
	sess, err := h.svc.Session(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionResponse(sess.View()))
}

func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "sessionID")
	if !ok {
		return
	}
	sub, err := h.svc.SubmitSession(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse(sub))
}

func (h *Handler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "sessionID")
	if !ok {
		return
	}
	if err := h.svc.DiscardSession(r.Context(), sessionID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lookupAnalysis(w http.ResponseWriter, r *http.Request) (*Record, bool) {
	patientID, ok := uuidParam(w, r, "patientID")
	if !ok {
		return nil, false
	}
	analysisID, ok := uuidParam(w, r, "analysisID")
	if !ok {
		return nil, false
	}
	rec, err := h.svc.GetAnalysis(r.Context(), patientID, analysisID)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return rec, true
}

func (h *Handler) sessionResponse(v SessionView) SessionResponse {
	answered, total := Progress(v.Answers, h.svc.Catalog())
	return SessionResponse{
		SessionView: v,
		Answered:    answered,
		Total:       total,
		Complete:    IsComplete(v.Answers, h.svc.Catalog()),
	}
}

func submissionResponse(sub *Submission) SubmissionResponse {
	resp := SubmissionResponse{Analysis: sub.Record}
	if sub.Warning != nil {
		resp.Warning = sub.Warning.Error()
	}
	return resp
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		incomplete *IncompleteFormError
		invalid    *InvalidResultError
		persist    *PersistenceError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.As(err, &incomplete):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   err.Error(),
			Missing: incomplete.Missing,
			Invalid: incomplete.Invalid,
		})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "analysis results are invalid and were not saved"})
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrAnalysisNotFound), errors.Is(err, ErrPatientNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrSessionClosed), errors.Is(err, ErrSubmissionInFlight):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &persist):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable, please try again"})
	default:
		h.log.WithError(err).Error("unhandled analysis error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/questionnaire", h.GetQuestionnaire)
	r.Post("/score", h.Score)

	r.Route("/patients/{patientID}", func(r chi.Router) {
		r.Post("/analyses", h.SubmitAnalysis)
		r.Get("/analyses", h.ListAnalyses)
		r.Get("/analyses/trend", h.GetTrend)
		r.Get("/analyses/{analysisID}/report", h.GetReport)
		r.Post("/analyses/{analysisID}/share", h.ShareReport)
		r.Post("/sessions", h.StartSession)
	})

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Put("/answers/{questionID}", h.RecordAnswer)
		r.Post("/submit", h.SubmitSession)
		r.Delete("/", h.DiscardSession)
	})
}
