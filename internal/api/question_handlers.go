package api

import "net/http"

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	questions, err := s.QuestionService.ListQuestions(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, questions)
}

// handleImportQuestions takes the raw question document as the request
// body. The optional fileName query parameter names the stored set.
func (s *Server) handleImportQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	data, err := readBody(w, r, maxUploadBody)
	if err != nil {
		handleError(w, r, err)
		return
	}
	report, err := s.QuestionService.ImportQuestions(r.Context(), id, r.URL.Query().Get("fileName"), data)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, report)
}

func (s *Server) handleListQuestionSets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	sets, err := s.QuestionService.ListQuestionSets(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sets)
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.QuestionService.DeleteQuestion(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
