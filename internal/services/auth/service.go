package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/rpsduel-go/internal/dependencies/clock"
	"github.com/mcoot/rpsduel-go/internal/dependencies/random"
	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownIdentity    = errors.New("unknown identity")
	ErrIdentityExists     = errors.New("identity already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password too short")
)

const minPasswordLength = 6

// Session is the ephemeral binding of one live connection to an Identity.
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	CreatedAt time.Time
}

// ReleaseHook runs when a session ends (logout, disconnect, or displacement
// by a newer login). Hooks must tolerate being called for sessions they
// never saw.
type ReleaseHook func(session *Session)

// Service is the session store: it authenticates identities and owns the
// token table. Resolve is the sole authorization gate for every other
// component.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	byPlayer map[model.PlayerID]string

	hooks []ReleaseHook // registered at wiring time, before serving
}

// New creates a new auth service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage:  storage,
		clock:    clock,
		random:   random,
		logger:   logger.With(slog.String("component", "auth")),
		sessions: make(map[string]*Session),
		byPlayer: make(map[model.PlayerID]string),
	}
}

// OnRelease registers a hook to run whenever a session is released.
// Not safe to call once the service is handling requests.
func (s *Service) OnRelease(hook ReleaseHook) {
	s.hooks = append(s.hooks, hook)
}

// Register creates a new identity with the default rating.
func (s *Service) Register(ctx context.Context, email, password string) (*model.Identity, error) {
	id, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	// Duplicate check
	_, err = s.storage.GetIdentity(ctx, id)
	if err == nil {
		return nil, ErrIdentityExists
	}
	if !errors.Is(err, model.ErrIdentityNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	seq, err := s.storage.NextRegistrationSeq(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	identity := &model.Identity{
		ID:        id,
		Rating:    model.DefaultRating,
		Seq:       seq,
		CreatedAt: now,
	}

	if err := s.storage.SaveIdentity(ctx, identity); err != nil {
		return nil, err
	}
	if err := s.storage.SaveCredential(ctx, &model.Credential{
		PlayerID:     id,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("identity registered", slog.String("player_id", string(id)))
	return identity, nil
}

// Login validates a credential pair and issues a fresh session token.
// Any previous session for the identity is released: one active session
// per identity.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	id, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	cred, err := s.storage.GetCredential(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return nil, ErrUnknownIdentity
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		Token:     s.random.Token("sess_"),
		PlayerID:  id,
		CreatedAt: s.clock.Now(),
	}

	s.mu.Lock()
	displaced := s.removeLocked(s.byPlayer[id])
	s.sessions[session.Token] = session
	s.byPlayer[id] = session.Token
	s.mu.Unlock()

	if displaced != nil {
		s.runHooks(displaced)
		s.logger.Info("previous session displaced", slog.String("player_id", string(id)))
	}

	s.logger.Info("login", slog.String("player_id", string(id)))
	return session, nil
}

// Resolve maps a token to its session. This is the authorization gate:
// every protocol operation resolves its token first.
func (s *Service) Resolve(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidToken
	}
	return session, nil
}

// Identity fetches the stored identity for a player.
func (s *Service) Identity(ctx context.Context, playerID model.PlayerID) (*model.Identity, error) {
	return s.storage.GetIdentity(ctx, playerID)
}

// Release invalidates a token and runs the release hooks (queue removal,
// match forfeit). Idempotent: unknown tokens are a no-op.
func (s *Service) Release(token string) {
	s.mu.Lock()
	session := s.removeLocked(token)
	s.mu.Unlock()

	if session == nil {
		return
	}

	s.runHooks(session)
	s.logger.Info("session released", slog.String("player_id", string(session.PlayerID)))
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// removeLocked unlinks a session from both indices. Caller holds mu.
func (s *Service) removeLocked(token string) *Session {
	session, ok := s.sessions[token]
	if !ok {
		return nil
	}
	delete(s.sessions, token)
	if s.byPlayer[session.PlayerID] == token {
		delete(s.byPlayer, session.PlayerID)
	}
	return session
}

func (s *Service) runHooks(session *Session) {
	for _, hook := range s.hooks {
		hook(session)
	}
}

// normalizeEmail lowercases and minimally validates the identifier.
func normalizeEmail(email string) (model.PlayerID, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(e, '@')
	if at < 1 || at == len(e)-1 || strings.ContainsAny(e, " \t\n") {
		return "", ErrInvalidEmail
	}
	return model.PlayerID(e), nil
}
