package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
	"github.com/vncsmyrnk/epoll/internal/retry"
)

type reconcileService struct {
	repo   ports.DebateRepository
	logger *slog.Logger
}

func NewReconcileService(repo ports.DebateRepository, logger *slog.Logger) ports.ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &reconcileService{
		repo:   repo,
		logger: logger,
	}
}

// ReconcileAllVotes sets votes.count back to the number of stored votes on
// every poll where they differ and returns how many polls were repaired.
func (s *reconcileService) ReconcileAllVotes(ctx context.Context) (int, error) {
	ids, err := s.repo.ListIDs(ctx, domain.DebateTypePoll)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch all polls: %w", err)
	}

	var repaired atomic.Int64
	var wg sync.WaitGroup
	errChan := make(chan error, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(pollID uuid.UUID) {
			defer wg.Done()
			changed, err := s.reconcile(ctx, pollID)
			if err != nil {
				errChan <- fmt.Errorf("failed to reconcile poll %s: %w", pollID, err)
				return
			}
			if changed {
				repaired.Add(1)
				s.logger.InfoContext(ctx, "vote count repaired", "poll_id", pollID)
			}
		}(id)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return int(repaired.Load()), err
		}
	}

	return int(repaired.Load()), nil
}

func (s *reconcileService) reconcile(ctx context.Context, pollID uuid.UUID) (bool, error) {
	var changed bool
	err := retry.DoWithRetry(ctx, mutateAttempts, mutateBackoff, isVersionConflict, func() error {
		d, err := s.repo.GetByID(ctx, pollID)
		if err != nil {
			return err
		}
		poll, err := d.Poll()
		if err != nil {
			return err
		}
		changed = poll.ReconcileVotes()
		if !changed {
			return nil
		}
		return s.repo.Update(ctx, d, ports.FieldVoteCount)
	})
	return changed, err
}
