package rating

import (
	"context"
	"hash/fnv"
	"iter"
	"log/slog"
	"math"
	"sync"

	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/storage"
)

// Config holds configuration for the rating service
type Config struct {
	// KFactor scales how far a single result moves a rating
	KFactor float64
}

// DefaultConfig returns default rating configuration
func DefaultConfig() Config {
	return Config{
		KFactor: 32,
	}
}

const stripeCount = 64

// Service applies Elo-style rating updates and serves the leaderboard.
// It is the only writer of Identity.Rating.
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
	cfg     Config

	// Updates hold the lock stripes of both identities, so each pair is
	// computed from a consistent pre-update rating pair while updates
	// for identities on other stripes proceed independently.
	stripes [stripeCount]sync.Mutex
}

// New creates a new rating service
func New(storage storage.Storage, cfg Config, logger *slog.Logger) *Service {
	if cfg.KFactor == 0 {
		cfg.KFactor = DefaultConfig().KFactor
	}
	return &Service{
		storage: storage,
		logger:  logger.With(slog.String("component", "rating")),
		cfg:     cfg,
	}
}

// Update applies a paired Elo update and returns the new ratings for a and b.
// Both deltas are computed from the pre-update ratings of both identities,
// and both records are persisted in one atomic storage write.
func (s *Service) Update(ctx context.Context, a model.PlayerID, outcomeA model.Outcome, b model.PlayerID, outcomeB model.Outcome) (int, int, error) {
	// Stripes are always taken in index order so overlapping pair
	// updates cannot deadlock
	i, j := stripeIndex(a), stripeIndex(b)
	if i > j {
		i, j = j, i
	}
	s.stripes[i].Lock()
	defer s.stripes[i].Unlock()
	if j != i {
		s.stripes[j].Lock()
		defer s.stripes[j].Unlock()
	}

	ia, err := s.storage.GetIdentity(ctx, a)
	if err != nil {
		return 0, 0, err
	}
	ib, err := s.storage.GetIdentity(ctx, b)
	if err != nil {
		return 0, 0, err
	}

	deltaA := s.delta(ia.Rating, ib.Rating, outcomeA)
	deltaB := s.delta(ib.Rating, ia.Rating, outcomeB)

	ia.Rating += deltaA
	ib.Rating += deltaB

	if err := s.storage.UpdateRatings(ctx, ia, ib); err != nil {
		return 0, 0, err
	}

	s.logger.Info("ratings updated",
		slog.String("player_a", string(a)),
		slog.Int("delta_a", deltaA),
		slog.String("player_b", string(b)),
		slog.Int("delta_b", deltaB),
	)

	return ia.Rating, ib.Rating, nil
}

func stripeIndex(id model.PlayerID) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % stripeCount)
}

// delta computes the rounded Elo adjustment for one side.
func (s *Service) delta(rating, opponentRating int, outcome model.Outcome) int {
	expected := 1 / (1 + math.Pow(10, float64(opponentRating-rating)/400))
	return int(math.Round(s.cfg.KFactor * (outcome.Score() - expected)))
}

// Leaderboard returns a lazy, restartable sequence of up to limit entries,
// descending by rating with ties broken by earliest registration.
// The sequence iterates over a snapshot taken at call time.
func (s *Service) Leaderboard(ctx context.Context, limit int) (iter.Seq[model.LeaderboardEntry], error) {
	entries, err := s.Snapshot(ctx, limit)
	if err != nil {
		return nil, err
	}
	return func(yield func(model.LeaderboardEntry) bool) {
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}, nil
}

// Snapshot returns the leaderboard eagerly, for embedding in result payloads.
func (s *Service) Snapshot(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	identities, err := s.storage.TopIdentities(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(identities))
	for i, identity := range identities {
		entries = append(entries, model.LeaderboardEntry{
			PlayerID: identity.ID,
			Rating:   identity.Rating,
			Rank:     i + 1,
		})
	}
	return entries, nil
}
