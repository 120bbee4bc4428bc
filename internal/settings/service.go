package settings

import (
	"context"
	"log/slog"
)

type Settings struct {
	ID                   int    `json:"-"`
	GeminiAPIKey         string `json:"gemini_api_key"`
	NotifyEmail          string `json:"notify_email"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	return s.repo.Update(ctx, set)
}

// NotifyRecipient reports where completion mail should go. Notification is
// best-effort, so a settings read failure disables it rather than erroring.
func (s *Service) NotifyRecipient(ctx context.Context) (string, bool) {
	set, err := s.repo.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load notify settings", "error", err)
		return "", false
	}
	if !set.NotificationsEnabled || set.NotifyEmail == "" {
		return "", false
	}
	return set.NotifyEmail, true
}
