package api

import (
	"net/http"

	"github.com/neetpractice/neetpractice/internal/models"
)

type renameFolderRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	parentID, err := queryID(r, "parentId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	folders, err := s.FileService.ListFolders(r.Context(), parentID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, folders)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var in models.Folder
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}
	folder, err := s.FileService.CreateFolder(r.Context(), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, folder)
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req renameFolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	folder, err := s.FileService.RenameFolder(r.Context(), id, req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, folder)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.FileService.DeleteFolder(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListFiles omits file contents; fetch a single file for its data.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	folderID, err := queryID(r, "folderId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	files, err := s.FileService.ListFiles(r.Context(), folderID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	for i := range files {
		files[i].DataURL = ""
	}
	writeJSON(w, r, http.StatusOK, files)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	file, err := s.FileService.GetFile(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, file)
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var in models.File
	if err := decodeJSONLimit(w, r, &in, maxUploadBody); err != nil {
		handleError(w, r, err)
		return
	}
	file, err := s.FileService.CreateFile(r.Context(), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	file.DataURL = ""
	writeJSON(w, r, http.StatusCreated, file)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.FileService.DeleteFile(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.MessageService.ListMessages(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, msgs)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var in models.Message
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}
	msg, err := s.MessageService.PostMessage(r.Context(), in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.MessageService.DeleteMessage(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	cleared, err := s.MessageService.ClearMessages(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"cleared": cleared})
}
