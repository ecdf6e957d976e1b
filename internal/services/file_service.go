package services

import (
	"context"
	"strings"
	"time"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
)

// FileService backs the file-storage browser. Folder and file id 0 is the root.
type FileService interface {
	ListFolders(ctx context.Context, parentID int64) ([]models.Folder, error)
	CreateFolder(ctx context.Context, in models.Folder) (*models.Folder, error)
	RenameFolder(ctx context.Context, id int64, name string) (*models.Folder, error)
	// DeleteFolder removes files and sub-folders depth first, then the folder.
	DeleteFolder(ctx context.Context, id int64) error

	ListFiles(ctx context.Context, folderID int64) ([]models.File, error)
	GetFile(ctx context.Context, id int64) (*models.File, error)
	CreateFile(ctx context.Context, in models.File) (*models.File, error)
	DeleteFile(ctx context.Context, id int64) error
}

type fileService struct {
	gw *gateway.Gateway
}

// NewFileService creates a new FileService
func NewFileService(gw *gateway.Gateway) FileService {
	return &fileService{gw: gw}
}

func (s *fileService) ListFolders(ctx context.Context, parentID int64) ([]models.Folder, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing folders: parent_id=%d", parentID)

	folders, err := s.gw.Folders.GetByIndex(ctx, "parentId", parentID)
	if err != nil {
		return nil, storeError(log, "folder", parentID, err)
	}
	return folders, nil
}

func (s *fileService) CreateFolder(ctx context.Context, in models.Folder) (*models.Folder, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating folder: parent_id=%d name=%s", in.ParentID, in.Name)

	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	if err := s.requireFolder(ctx, log, "parentId", in.ParentID); err != nil {
		return nil, err
	}
	folder := &models.Folder{ParentID: in.ParentID, Name: name, CreatedAt: time.Now().UTC()}
	if _, err := s.gw.Folders.Add(ctx, folder); err != nil {
		return nil, storeError(log, "folder", folder.ID, err)
	}
	return folder, nil
}

func (s *fileService) RenameFolder(ctx context.Context, id int64, name string) (*models.Folder, error) {
	log := logger.FromContext(ctx)
	log.Debug("renaming folder: id=%d", id)

	name, err := requireText("name", name)
	if err != nil {
		return nil, err
	}
	folder, err := s.gw.Folders.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(log, "folder", id, err)
	}
	folder.Name = name
	if err := s.gw.Folders.Put(ctx, folder); err != nil {
		return nil, storeError(log, "folder", id, err)
	}
	return folder, nil
}

func (s *fileService) DeleteFolder(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting folder: id=%d", id)

	if _, err := s.gw.Folders.GetByID(ctx, id); err != nil {
		return storeError(log, "folder", id, err)
	}
	if err := s.deleteFolderTree(ctx, id); err != nil {
		return storeError(log, "folder", id, err)
	}
	log.Info("deleted folder %d", id)
	return nil
}

func (s *fileService) deleteFolderTree(ctx context.Context, id int64) error {
	children, err := s.gw.Folders.GetByIndex(ctx, "parentId", id)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.deleteFolderTree(ctx, child.ID); err != nil {
			return err
		}
	}
	if _, err := s.gw.Files.DeleteByIndex(ctx, "folderId", id); err != nil {
		return err
	}
	return s.gw.Folders.Delete(ctx, id)
}

func (s *fileService) ListFiles(ctx context.Context, folderID int64) ([]models.File, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing files: folder_id=%d", folderID)

	files, err := s.gw.Files.GetByIndex(ctx, "folderId", folderID)
	if err != nil {
		return nil, storeError(log, "file", folderID, err)
	}
	return files, nil
}

func (s *fileService) GetFile(ctx context.Context, id int64) (*models.File, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting file: id=%d", id)

	file, err := s.gw.Files.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(log, "file", id, err)
	}
	return file, nil
}

func (s *fileService) CreateFile(ctx context.Context, in models.File) (*models.File, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating file: folder_id=%d name=%s", in.FolderID, in.Name)

	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	if in.Size < 0 {
		return nil, errors.NewValidationError("size", "cannot be negative")
	}
	if err := s.requireFolder(ctx, log, "folderId", in.FolderID); err != nil {
		return nil, err
	}
	size := in.Size
	if size == 0 {
		size = int64(len(in.DataURL))
	}
	file := &models.File{
		FolderID:  in.FolderID,
		Name:      name,
		MimeType:  strings.TrimSpace(in.MimeType),
		Size:      size,
		DataURL:   in.DataURL,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.gw.Files.Add(ctx, file); err != nil {
		return nil, storeError(log, "file", file.ID, err)
	}
	return file, nil
}

func (s *fileService) DeleteFile(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting file: id=%d", id)

	if _, err := s.gw.Files.GetByID(ctx, id); err != nil {
		return storeError(log, "file", id, err)
	}
	if err := s.gw.Files.Delete(ctx, id); err != nil {
		return storeError(log, "file", id, err)
	}
	return nil
}

func (s *fileService) requireFolder(ctx context.Context, log *logger.Logger, field string, id int64) error {
	if id == 0 {
		return nil
	}
	_, err := s.gw.Folders.GetByID(ctx, id)
	return referenceError(log, field, "folder", id, err)
}
