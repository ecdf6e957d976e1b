package api

import (
	"time"

	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/services"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Gateway         *gateway.Gateway
	SubjectService  services.SubjectService
	BookService     services.BookService
	ChapterService  services.ChapterService
	QuestionService services.QuestionService
	QuizService     services.QuizService
	ResultService   services.ResultService
	StatsService    services.StatsService
	FileService     services.FileService
	MessageService  services.MessageService
	BackupService   services.BackupService

	CORSOrigins    []string
	RequestTimeout time.Duration
}
