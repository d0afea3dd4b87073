package chat

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"loom/internal/config"
	"loom/internal/domain"
	chatmodels "loom/internal/domain/models/chat"
	"loom/internal/domain/repositories"
)

// Service exposes thread management around the orchestrator: listing,
// reading transcripts, renaming, and deleting threads.
type Service struct {
	threads repositories.ThreadRepository
	turns   repositories.TurnRepository
	logger  *slog.Logger
}

// NewService creates a thread management service.
func NewService(threads repositories.ThreadRepository, turns repositories.TurnRepository, logger *slog.Logger) *Service {
	return &Service{
		threads: threads,
		turns:   turns,
		logger:  logger,
	}
}

// CreateThread starts an empty thread with an optional title.
func (s *Service) CreateThread(ctx context.Context, userID, title string) (*chatmodels.Thread, error) {
	if err := validation.Validate(title,
		validation.Length(0, config.MaxThreadTitleLength),
	); err != nil {
		return nil, fmt.Errorf("%w: title: %v", domain.ErrValidation, err)
	}

	thread := &chatmodels.Thread{
		UserID: userID,
		Title:  title,
	}
	if err := s.threads.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return thread, nil
}

// ListThreads returns the user's threads, most recently active first.
func (s *Service) ListThreads(ctx context.Context, userID string) ([]chatmodels.Thread, error) {
	return s.threads.ListThreads(ctx, userID)
}

// GetThread returns one thread, owner-scoped.
func (s *Service) GetThread(ctx context.Context, threadID, userID string) (*chatmodels.Thread, error) {
	return s.threads.GetThread(ctx, threadID, userID)
}

// Transcript returns the user-facing turns of a thread in order. Tool turns
// are audit records and stay out of the transcript.
func (s *Service) Transcript(ctx context.Context, threadID, userID string) ([]chatmodels.Turn, error) {
	turns, err := s.turns.ListTurns(ctx, threadID, userID)
	if err != nil {
		return nil, err
	}

	transcript := make([]chatmodels.Turn, 0, len(turns))
	for i := range turns {
		if turns[i].IsConversational() {
			transcript = append(transcript, turns[i])
		}
	}
	return transcript, nil
}

// GetTurn returns one turn by ID, owner-scoped through its thread.
func (s *Service) GetTurn(ctx context.Context, turnID, userID string) (*chatmodels.Turn, error) {
	return s.turns.GetTurn(ctx, turnID, userID)
}

// RenameThread sets a new title.
func (s *Service) RenameThread(ctx context.Context, threadID, userID, title string) error {
	if err := validation.Validate(title,
		validation.Required,
		validation.Length(1, config.MaxThreadTitleLength),
	); err != nil {
		return fmt.Errorf("%w: title: %v", domain.ErrValidation, err)
	}
	return s.threads.UpdateTitle(ctx, threadID, userID, title)
}

// DeleteThread removes a thread and its turns.
func (s *Service) DeleteThread(ctx context.Context, threadID, userID string) error {
	return s.threads.DeleteThread(ctx, threadID, userID)
}
