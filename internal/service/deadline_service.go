package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campusloop/assess-api/internal/dto"
	"github.com/campusloop/assess-api/internal/repository"
)

// DeadlineDigest summarises upcoming and overdue assignments for a course.
type DeadlineDigest struct {
	CourseID    uint                     `json:"course_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	DueSoon     []dto.AssignmentResponse `json:"due_soon"`
	Overdue     []dto.AssignmentResponse `json:"overdue"`
}

// DeadlineService produces the per-course deadline digest.
type DeadlineService interface {
	Digest(ctx context.Context, courseID uint, window time.Duration) (DeadlineDigest, error)
}

type deadlineService struct {
	assignments repository.AssignmentRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDeadlineService constructs the deadline digest service. The digest is
// cached per course; a nil redis client disables caching.
func NewDeadlineService(assignments repository.AssignmentRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DeadlineService {
	return &deadlineService{
		assignments: assignments,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "deadline_service").Logger(),
		now:         time.Now,
	}
}

func (s *deadlineService) Digest(ctx context.Context, courseID uint, window time.Duration) (DeadlineDigest, error) {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}

	cacheKey := fmt.Sprintf("deadlines:course:%d:%d", courseID, int(window.Hours()))

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var digest DeadlineDigest
			if unmarshalErr := json.Unmarshal([]byte(cached), &digest); unmarshalErr == nil {
				s.logger.Debug().Uint("course_id", courseID).Msg("deadline digest cache hit")
				return digest, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read deadline digest cache")
		}
	}

	assignments, _, err := s.assignments.List(ctx, repository.AssignmentFilter{CourseID: &courseID})
	if err != nil {
		return DeadlineDigest{}, err
	}

	now := s.now()
	horizon := now.Add(window)
	digest := DeadlineDigest{
		CourseID:    courseID,
		GeneratedAt: now.UTC(),
		DueSoon:     []dto.AssignmentResponse{},
		Overdue:     []dto.AssignmentResponse{},
	}

	for _, assignment := range assignments {
		switch {
		case assignment.IsPastDue(now):
			digest.Overdue = append(digest.Overdue, dto.NewAssignmentResponse(assignment))
		case !assignment.DueDate.After(horizon):
			digest.DueSoon = append(digest.DueSoon, dto.NewAssignmentResponse(assignment))
		}
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(digest); marshalErr == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store deadline digest cache")
			}
		}
	}

	return digest, nil
}
