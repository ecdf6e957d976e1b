package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/neetpractice/neetpractice/internal/errors"
)

const defaultRequestTimeout = 30 * time.Second

func (s *Server) Routes() http.Handler {
	timeout := s.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/subjects", func(r chi.Router) {
			r.Get("/", s.handleListSubjects)
			r.Post("/", s.handleCreateSubject)
			r.Get("/{id}", s.handleGetSubject)
			r.Put("/{id}", s.handleUpdateSubject)
			r.Delete("/{id}", s.handleDeleteSubject)
			r.Get("/{id}/books", s.handleSubjectBooks)
			r.Get("/{id}/chapters", s.handleSubjectChapters)
		})
		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Post("/", s.handleCreateBook)
			r.Get("/{id}", s.handleGetBook)
			r.Put("/{id}", s.handleUpdateBook)
			r.Delete("/{id}", s.handleDeleteBook)
			r.Get("/{id}/chapters", s.handleBookChapters)
		})
		r.Route("/chapters", func(r chi.Router) {
			r.Get("/", s.handleListChapters)
			r.Post("/", s.handleCreateChapter)
			r.Get("/{id}", s.handleGetChapter)
			r.Put("/{id}", s.handleUpdateChapter)
			r.Delete("/{id}", s.handleDeleteChapter)
			r.Get("/{id}/questions", s.handleListQuestions)
			r.Post("/{id}/questions", s.handleImportQuestions)
			r.Get("/{id}/question-sets", s.handleListQuestionSets)
		})
		r.Delete("/questions/{id}", s.handleDeleteQuestion)

		r.Route("/quiz/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Get("/{id}", s.handleGetSession)
			r.Delete("/{id}", s.handleDiscardSession)
			r.Get("/{id}/result", s.handleSessionResult)
			r.Post("/{id}/retry-wrong", s.handleRetryWrong)
			r.Post("/{id}/{action}", s.handleSessionAction)
		})

		r.Get("/results", s.handleListResults)
		r.Post("/results", s.handleRecordResult)
		r.Get("/stats", s.handleStats)

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", s.handleListFolders)
			r.Post("/", s.handleCreateFolder)
			r.Patch("/{id}", s.handleRenameFolder)
			r.Delete("/{id}", s.handleDeleteFolder)
		})
		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.handleListFiles)
			r.Post("/", s.handleCreateFile)
			r.Get("/{id}", s.handleGetFile)
			r.Delete("/{id}", s.handleDeleteFile)
		})
		r.Route("/messages", func(r chi.Router) {
			r.Get("/", s.handleListMessages)
			r.Post("/", s.handlePostMessage)
			r.Delete("/", s.handleClearMessages)
			r.Delete("/{id}", s.handleDeleteMessage)
		})

		r.Get("/backup", s.handleExportBackup)
		r.Post("/backup", s.handleRestoreBackup)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusNotFound, errorBody{Error: errorDetail{Code: errors.ErrCodeNotFound, Message: "route not found"}})
	})
	return r
}
