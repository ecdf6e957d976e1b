package services

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
)

// RestoreReport lists how many records each restored collection now holds.
type RestoreReport struct {
	Restored map[string]int `json:"restored"`
}

// BackupService exports and restores the whole store
type BackupService interface {
	Export(ctx context.Context) (*models.Backup, error)
	// Restore overwrites every collection present in data. Nothing is
	// written unless the whole document is valid.
	Restore(ctx context.Context, data []byte) (*RestoreReport, error)
}

type backupService struct {
	gw *gateway.Gateway
}

// NewBackupService creates a new BackupService
func NewBackupService(gw *gateway.Gateway) BackupService {
	return &backupService{gw: gw}
}

func (s *backupService) Export(ctx context.Context) (*models.Backup, error) {
	log := logger.FromContext(ctx)
	log.Debug("exporting backup")

	backup, err := s.gw.Snapshot(ctx)
	if err != nil {
		return nil, storeError(log, "backup", "export", err)
	}
	log.Info("exported backup from %s backend", backup.Backend)
	return backup, nil
}

func (s *backupService) Restore(ctx context.Context, data []byte) (*RestoreReport, error) {
	log := logger.FromContext(ctx)
	log.Debug("restoring backup: bytes=%d", len(data))

	var backup models.Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, errors.NewValidationError("backup", "malformed document: "+err.Error())
	}

	written, err := s.gw.Restore(ctx, &backup)
	if err != nil {
		var verr *gateway.ValidationError
		if stderrors.As(err, &verr) {
			return nil, errors.NewValidationError("backup", verr.Error())
		}
		return nil, storeError(log, "backup", "restore", err)
	}
	return &RestoreReport{Restored: written}, nil
}
