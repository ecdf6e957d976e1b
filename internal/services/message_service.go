package services

import (
	"context"
	"strings"
	"time"

	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/models"
)

const defaultSender = "me"

// MessageService backs the notes/chat panel
type MessageService interface {
	// ListMessages returns messages oldest first.
	ListMessages(ctx context.Context) ([]models.Message, error)
	PostMessage(ctx context.Context, in models.Message) (*models.Message, error)
	DeleteMessage(ctx context.Context, id int64) error
	// ClearMessages removes every message and reports how many went.
	ClearMessages(ctx context.Context) (int, error)
}

type messageService struct {
	gw *gateway.Gateway
}

// NewMessageService creates a new MessageService
func NewMessageService(gw *gateway.Gateway) MessageService {
	return &messageService{gw: gw}
}

func (s *messageService) ListMessages(ctx context.Context) ([]models.Message, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing messages")

	msgs, err := s.gw.Messages.GetAll(ctx)
	if err != nil {
		return nil, storeError(log, "message", "all", err)
	}
	return msgs, nil
}

func (s *messageService) PostMessage(ctx context.Context, in models.Message) (*models.Message, error) {
	log := logger.FromContext(ctx)

	text, err := requireText("text", in.Text)
	if err != nil {
		return nil, err
	}
	sender := strings.TrimSpace(in.Sender)
	if sender == "" {
		sender = defaultSender
	}
	msg := &models.Message{Sender: sender, Text: text, CreatedAt: time.Now().UTC()}
	if _, err := s.gw.Messages.Add(ctx, msg); err != nil {
		return nil, storeError(log, "message", msg.ID, err)
	}
	log.Debug("posted message %d", msg.ID)
	return msg, nil
}

func (s *messageService) DeleteMessage(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting message: id=%d", id)

	if _, err := s.gw.Messages.GetByID(ctx, id); err != nil {
		return storeError(log, "message", id, err)
	}
	if err := s.gw.Messages.Delete(ctx, id); err != nil {
		return storeError(log, "message", id, err)
	}
	return nil
}

func (s *messageService) ClearMessages(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	msgs, err := s.gw.Messages.GetAll(ctx)
	if err != nil {
		return 0, storeError(log, "message", "all", err)
	}
	for _, m := range msgs {
		if err := s.gw.Messages.Delete(ctx, m.ID); err != nil {
			return 0, storeError(log, "message", m.ID, err)
		}
	}
	log.Info("cleared %d messages", len(msgs))
	return len(msgs), nil
}
