package api

import (
	"net/http"

	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/services"
)

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.SubjectService.ListSubjects(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, subjects)
}

func (s *Server) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	subject, err := s.SubjectService.GetSubject(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, subject)
}

func (s *Server) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var in models.Subject
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}
	subject, err := s.SubjectService.CreateSubject(r.Context(), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, subject)
}

func (s *Server) handleUpdateSubject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var in models.Subject
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}
	subject, err := s.SubjectService.UpdateSubject(r.Context(), id, in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, subject)
}

func (s *Server) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.SubjectService.DeleteSubject(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubjectBooks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if _, err := s.SubjectService.GetSubject(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	books, err := s.BookService.ListBooks(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, books)
}

// handleSubjectChapters lists a subject's chapters; ?direct=true keeps only
// chapters outside any book.
func (s *Server) handleSubjectChapters(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if _, err := s.SubjectService.GetSubject(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	s.writeChapters(w, r, services.ChapterFilter{SubjectID: id, Direct: queryBool(r, "direct")})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	subjectID, err := queryID(r, "subjectId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	books, err := s.BookService.ListBooks(r.Context(), subjectID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	book, err := s.BookService.GetBook(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, book)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var in models.Book
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}
	book, err := s.BookService.CreateBook(r.Context(), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var in models.Book
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}
	book, err := s.BookService.UpdateBook(r.Context(), id, in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.BookService.DeleteBook(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBookChapters(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if _, err := s.BookService.GetBook(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	s.writeChapters(w, r, services.ChapterFilter{BookID: id})
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	subjectID, err := queryID(r, "subjectId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	bookID, err := queryID(r, "bookId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.writeChapters(w, r, services.ChapterFilter{SubjectID: subjectID, BookID: bookID, Direct: queryBool(r, "direct")})
}

func (s *Server) writeChapters(w http.ResponseWriter, r *http.Request, filter services.ChapterFilter) {
	chapters, err := s.ChapterService.ListChapters(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chapters)
}

func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	chapter, err := s.ChapterService.GetChapter(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chapter)
}

func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	var in models.Chapter
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}
	chapter, err := s.ChapterService.CreateChapter(r.Context(), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, chapter)
}

func (s *Server) handleUpdateChapter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var in models.Chapter
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}
	chapter, err := s.ChapterService.UpdateChapter(r.Context(), id, in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chapter)
}

func (s *Server) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.ChapterService.DeleteChapter(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
