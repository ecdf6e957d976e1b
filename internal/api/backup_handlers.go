package api

import (
	"fmt"
	"net/http"
)

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := s.BackupService.Export(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	name := fmt.Sprintf("neet-practice-backup-%s.json", backup.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	writeJSON(w, r, http.StatusOK, backup)
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r, maxUploadBody)
	if err != nil {
		handleError(w, r, err)
		return
	}
	report, err := s.BackupService.Restore(r.Context(), data)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}
