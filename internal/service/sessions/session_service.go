package sessions

import (
	"context"

	"github.com/Domenick1991/exambooking/internal/domain"
	"github.com/Domenick1991/exambooking/internal/repository"
)

type SessionUseCase interface {
	List(ctx context.Context) ([]domain.Session, error)
	GetByID(ctx context.Context, id int64) (*domain.Session, error)
}

type Cache interface {
	GetSessions(ctx context.Context) ([]domain.Session, error)
	SetSessions(ctx context.Context, sessions []domain.Session) error
}

type Service struct {
	repo  repository.SessionRepository
	cache Cache
}

func NewService(repo repository.SessionRepository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List is cache-aside: cached occupancy in the listing may lag the live
// counter by up to the list TTL, which the admin table tolerates.
func (s *Service) List(ctx context.Context) ([]domain.Session, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetSessions(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetSessions(ctx, sessions)
	}
	return sessions, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	return s.repo.GetByID(ctx, id)
}

var _ SessionUseCase = (*Service)(nil)
