package api

import (
	"net/http"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/models"
)

type recordResultRequest struct {
	ChapterID int64             `json:"chapterId"`
	Result    models.QuizResult `json:"result"`
}

// handleListResults lists attempts newest first, optionally for one chapter.
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	chapterID, err := queryID(r, "chapterId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	stats, err := s.ResultService.History(r.Context(), chapterID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleRecordResult stores an attempt scored by the client.
func (s *Server) handleRecordResult(w http.ResponseWriter, r *http.Request) {
	var req recordResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.ChapterID <= 0 {
		handleError(w, r, errors.NewValidationError("chapterId", "is required"))
		return
	}
	stat, err := s.ResultService.Record(r.Context(), req.ChapterID, req.Result)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, stat)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	dash, err := s.StatsService.GetDashboard(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dash)
}
