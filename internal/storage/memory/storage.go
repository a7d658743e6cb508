package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	identities  map[model.PlayerID]*model.Identity
	credentials map[model.PlayerID]*model.Credential
	matches     map[model.MatchID]*model.Match
	seq         int64
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		identities:  make(map[model.PlayerID]*model.Identity),
		credentials: make(map[model.PlayerID]*model.Credential),
		matches:     make(map[model.MatchID]*model.Match),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *identity
	s.identities[identity.ID] = &cp
	return nil
}

func (s *Storage) GetIdentity(ctx context.Context, id model.PlayerID) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *Storage) UpdateRatings(ctx context.Context, a, b *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ca, cb := *a, *b
	s.identities[a.ID] = &ca
	s.identities[b.ID] = &cb
	return nil
}

func (s *Storage) TopIdentities(ctx context.Context, limit int) ([]*model.Identity, error) {
	s.mu.RLock()
	all := make([]*model.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		cp := *identity
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}
		return all[i].Seq < all[j].Seq
	})

	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Storage) NextRegistrationSeq(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cred
	s.credentials[cred.PlayerID] = &cp
	return nil
}

func (s *Storage) GetCredential(ctx context.Context, id model.PlayerID) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[id]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	cp := *cred
	return &cp, nil
}

// Match archive operations

func (s *Storage) SaveMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *match
	if match.Moves != nil {
		cp.Moves = make(map[model.PlayerID]model.Move, len(match.Moves))
		for k, v := range match.Moves {
			cp.Moves[k] = v
		}
	}
	s.matches[match.ID] = &cp
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	cp := *match
	return &cp, nil
}
