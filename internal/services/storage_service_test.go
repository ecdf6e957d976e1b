package services_test

import (
	"context"
	"testing"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/models"
	"github.com/neetpractice/neetpractice/internal/services"
	"github.com/neetpractice/neetpractice/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type StorageServiceSuite struct {
	suite.Suite
	ctx      context.Context
	gw       *gateway.Gateway
	files    services.FileService
	messages services.MessageService
}

func (s *StorageServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.gw = testutil.NewTestGateway(s.T())
	s.files = services.NewFileService(s.gw)
	s.messages = services.NewMessageService(s.gw)
}

func (s *StorageServiceSuite) TestCreateFolderUnderMissingParent() {
	_, err := s.files.CreateFolder(s.ctx, models.Folder{ParentID: 5, Name: "Notes"})
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal(errors.ErrCodeValidation, appErr.Code)
}

func (s *StorageServiceSuite) TestDeleteFolderRemovesTree() {
	root, err := s.files.CreateFolder(s.ctx, models.Folder{Name: "Physics"})
	s.Require().NoError(err)
	child, err := s.files.CreateFolder(s.ctx, models.Folder{ParentID: root.ID, Name: "Optics"})
	s.Require().NoError(err)
	grandchild, err := s.files.CreateFolder(s.ctx, models.Folder{ParentID: child.ID, Name: "Lenses"})
	s.Require().NoError(err)
	other, err := s.files.CreateFolder(s.ctx, models.Folder{Name: "Biology"})
	s.Require().NoError(err)

	for _, folderID := range []int64{root.ID, child.ID, grandchild.ID, other.ID} {
		_, err := s.files.CreateFile(s.ctx, models.File{FolderID: folderID, Name: "notes.pdf", DataURL: "data:application/pdf;base64,AAAA"})
		s.Require().NoError(err)
	}

	s.Require().NoError(s.files.DeleteFolder(s.ctx, root.ID))

	folders, err := s.gw.Folders.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(folders, 1)
	s.Equal(other.ID, folders[0].ID)

	files, err := s.gw.Files.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(files, 1)
	s.Equal(other.ID, files[0].FolderID)
}

func (s *StorageServiceSuite) TestRootListing() {
	_, err := s.files.CreateFolder(s.ctx, models.Folder{Name: "A"})
	s.Require().NoError(err)
	file, err := s.files.CreateFile(s.ctx, models.File{Name: " readme.txt ", DataURL: "data:text/plain,hi"})
	s.Require().NoError(err)
	s.Equal("readme.txt", file.Name)
	s.Equal(int64(len("data:text/plain,hi")), file.Size)

	folders, err := s.files.ListFolders(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(folders, 1)
	files, err := s.files.ListFiles(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(files, 1)
}

func (s *StorageServiceSuite) TestRenameFolder() {
	folder, err := s.files.CreateFolder(s.ctx, models.Folder{Name: "Old"})
	s.Require().NoError(err)

	renamed, err := s.files.RenameFolder(s.ctx, folder.ID, "New")
	s.Require().NoError(err)
	s.Equal("New", renamed.Name)

	_, err = s.files.RenameFolder(s.ctx, 404, "New")
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal(errors.ErrCodeNotFound, appErr.Code)
}

func (s *StorageServiceSuite) TestMessagesOldestFirstAndClear() {
	for _, text := range []string{"first", "second", "third"} {
		_, err := s.messages.PostMessage(s.ctx, models.Message{Text: text})
		s.Require().NoError(err)
	}
	_, err := s.messages.PostMessage(s.ctx, models.Message{Text: "  "})
	s.Require().Error(err)

	msgs, err := s.messages.ListMessages(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(msgs, 3)
	s.Equal("first", msgs[0].Text)
	s.Equal("me", msgs[0].Sender)

	s.Require().NoError(s.messages.DeleteMessage(s.ctx, msgs[1].ID))
	cleared, err := s.messages.ClearMessages(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, cleared)

	msgs, err = s.messages.ListMessages(s.ctx)
	s.Require().NoError(err)
	s.Empty(msgs)
}

func TestStorageServiceSuite(t *testing.T) {
	suite.Run(t, new(StorageServiceSuite))
}
