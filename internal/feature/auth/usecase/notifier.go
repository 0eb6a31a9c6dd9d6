package usecase

import (
	"context"
	"log/slog"

	"todo_backend/internal/feature/auth/domain/entity"
)

// LogNotifier is the default ResetNotifier. Mail delivery is out of scope,
// so it only records that a reset was requested. The token itself is never logged.
type LogNotifier struct{}

var _ ResetNotifier = LogNotifier{}

func (LogNotifier) NotifyReset(ctx context.Context, user *entity.User, _ string) error {
	slog.InfoContext(ctx, "password reset requested", "user_id", user.ID.String())
	return nil
}
