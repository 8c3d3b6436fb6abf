package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/infra/logging"
)

type submitRequest struct {
	Answers model.Answers `json:"answers"`
}

type submitResponse struct {
	RunID      string `json:"runId"`
	TotalScore int    `json:"totalScore"`
	MaxScore   int    `json:"maxScore"`
	Percentage int    `json:"percentage"`
	Band       string `json:"band"`
	Advice     string `json:"advice"`
}

func (s *Server) submitQuiz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	var body submitRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, log, err)
		return
	}
	run, err := s.quiz.Submit(ctx, logging.RequesterID(ctx), chi.URLParam(r, "slug"), body.Answers)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		RunID:      run.RunID,
		TotalScore: run.TotalScore,
		MaxScore:   run.MaxScore,
		Percentage: run.Percentage,
		Band:       run.BandLabel,
		Advice:     run.Advice,
	})
}

// getQuizRun serves a stored run, including the analysis once attached.
// Runs owned by a requester are hidden from everybody else.
func (s *Server) getQuizRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	run, err := s.quiz.Get(ctx, chi.URLParam(r, "runId"))
	if err != nil {
		writeError(w, log, err)
		return
	}
	if run.RequesterID != "" && run.RequesterID != logging.RequesterID(ctx) {
		writeError(w, log, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
