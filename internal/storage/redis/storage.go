package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	// Pipeline the record write with its leaderboard index entry
	pipe := s.client.Pipeline()
	pipe.Set(ctx, identityKey(identity.ID), data, 0)
	pipe.ZAdd(ctx, leaderboardKey(), redis.Z{
		Score:  leaderboardScore(identity),
		Member: string(identity.ID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetIdentity(ctx context.Context, id model.PlayerID) (*model.Identity, error) {
	data, err := s.client.Get(ctx, identityKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, err
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Storage) UpdateRatings(ctx context.Context, a, b *model.Identity) error {
	dataA, err := json.Marshal(a)
	if err != nil {
		return err
	}
	dataB, err := json.Marshal(b)
	if err != nil {
		return err
	}

	// One pipeline so both sides of the pair land together
	pipe := s.client.Pipeline()
	pipe.Set(ctx, identityKey(a.ID), dataA, 0)
	pipe.Set(ctx, identityKey(b.ID), dataB, 0)
	pipe.ZAdd(ctx, leaderboardKey(),
		redis.Z{Score: leaderboardScore(a), Member: string(a.ID)},
		redis.Z{Score: leaderboardScore(b), Member: string(b.ID)},
	)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) TopIdentities(ctx context.Context, limit int) ([]*model.Identity, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := s.client.ZRevRange(ctx, leaderboardKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = identityKey(model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	identities := make([]*model.Identity, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a record; skip rather than fail the read
			continue
		}
		var identity model.Identity
		if err := json.Unmarshal([]byte(raw), &identity); err != nil {
			return nil, err
		}
		identities = append(identities, &identity)
	}
	return identities, nil
}

func (s *Storage) NextRegistrationSeq(ctx context.Context) (int64, error) {
	return s.client.Incr(ctx, registrationSeqKey()).Result()
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, credentialKey(cred.PlayerID), data, 0).Err()
}

func (s *Storage) GetCredential(ctx context.Context, id model.PlayerID) (*model.Credential, error) {
	data, err := s.client.Get(ctx, credentialKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, err
	}

	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Match archive operations

func (s *Storage) SaveMatch(ctx context.Context, match *model.Match) error {
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, matchKey(match.ID), data, s.cfg.MatchTTL).Err()
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data, err := s.client.Get(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}
