package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/rpsduel-go/internal/dependencies/mocks"
	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/storage/memory"
	"github.com/mcoot/rpsduel-go/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.service = New(s.storage, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	identity, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	s.Equal(model.PlayerID("alice@example.com"), identity.ID)
	s.Equal(model.DefaultRating, identity.Rating)
	s.Equal(int64(1), identity.Seq)
}

func (s *ServiceSuite) TestRegisterNormalizesEmail() {
	identity, err := s.service.Register(s.ctx, "  Alice@Example.COM ", "hunter22")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice@example.com"), identity.ID)
}

func (s *ServiceSuite) TestRegisterRejectsDuplicate() {
	_, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "alice@example.com", "other-pass")
	s.ErrorIs(err, ErrIdentityExists)
}

func (s *ServiceSuite) TestRegisterRejectsBadEmail() {
	for _, bad := range []string{"", "no-at-sign", "@example.com", "alice@"} {
		_, err := s.service.Register(s.ctx, bad, "hunter22")
		s.ErrorIs(err, ErrInvalidEmail, "input %q", bad)
	}
}

func (s *ServiceSuite) TestRegisterRejectsShortPassword() {
	_, err := s.service.Register(s.ctx, "alice@example.com", "short")
	s.ErrorIs(err, ErrPasswordTooShort)
}

func (s *ServiceSuite) TestRegisterNeverStoresPlaintext() {
	_, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	cred, err := s.storage.GetCredential(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.NotEqual("hunter22", cred.PasswordHash)
	s.NotContains(cred.PasswordHash, "hunter22")
}

func (s *ServiceSuite) TestRegistrationSequenceIncrements() {
	a, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)
	b, err := s.service.Register(s.ctx, "bob@example.com", "hunter22")
	s.Require().NoError(err)
	s.Less(a.Seq, b.Seq)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	_, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	session, err := s.service.Login(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)
	s.NotEmpty(session.Token)
	s.Equal(model.PlayerID("alice@example.com"), session.PlayerID)
}

func (s *ServiceSuite) TestLoginUnknownIdentity() {
	_, err := s.service.Login(s.ctx, "nobody@example.com", "hunter22")
	s.ErrorIs(err, ErrUnknownIdentity)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	_, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "alice@example.com", "wrong-pass")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestSecondLoginInvalidatesFirstToken() {
	_, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	first, err := s.service.Login(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)
	second, err := s.service.Login(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	_, err = s.service.Resolve(first.Token)
	s.ErrorIs(err, ErrInvalidToken)

	resolved, err := s.service.Resolve(second.Token)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice@example.com"), resolved.PlayerID)
}

func (s *ServiceSuite) TestDisplacedSessionRunsReleaseHooks() {
	var released []model.PlayerID
	s.service.OnRelease(func(session *Session) {
		released = append(released, session.PlayerID)
	})

	_, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)
	s.Empty(released)

	_, err = s.service.Login(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"alice@example.com"}, released)
}

// Resolve / Release tests

func (s *ServiceSuite) TestResolveUnknownToken() {
	_, err := s.service.Resolve("sess_bogus")
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestReleaseInvalidatesToken() {
	_, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)
	session, err := s.service.Login(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	s.service.Release(session.Token)

	_, err = s.service.Resolve(session.Token)
	s.ErrorIs(err, ErrInvalidToken)
	s.Equal(0, s.service.ActiveSessions())
}

func (s *ServiceSuite) TestReleaseIsIdempotent() {
	hookCalls := 0
	s.service.OnRelease(func(*Session) { hookCalls++ })

	_, err := s.service.Register(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)
	session, err := s.service.Login(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)

	s.service.Release(session.Token)
	s.service.Release(session.Token)
	s.service.Release("sess_never_issued")

	s.Equal(1, hookCalls)
}
