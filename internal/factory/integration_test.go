package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/services/auth"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) signUp(email string) *auth.Session {
	_, err := s.app.AuthService.Register(s.ctx, email, "hunter22")
	s.Require().NoError(err)
	session, err := s.app.AuthService.Login(s.ctx, email, "hunter22")
	s.Require().NoError(err)
	return session
}

func (s *IntegrationSuite) lastEvent(p model.PlayerID) model.Event {
	event, ok := s.app.Sink.LastFor(p)
	s.Require().True(ok, "expected an event for %s", p)
	return event
}

// Test: two players sign up, queue, play a round, and the winner
// climbs the leaderboard
func (s *IntegrationSuite) TestCompleteMatchFlow() {
	alice := s.signUp("alice@example.com")
	bob := s.signUp("bob@example.com")

	// Both enter the queue
	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, alice.PlayerID))
	s.Equal(model.EventQueued, s.lastEvent(alice.PlayerID).Type)

	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, bob.PlayerID))
	s.Equal(0, s.app.Matchmaker.Len())

	found := s.lastEvent(alice.PlayerID)
	s.Require().Equal(model.EventMatchFound, found.Type)
	s.Equal(bob.PlayerID, found.Payload.(model.MatchFoundPayload).Opponent)

	// Play the round
	s.Require().NoError(s.app.MatchEngine.Submit(s.ctx, alice.PlayerID, model.MovePaper))
	s.Require().NoError(s.app.MatchEngine.Submit(s.ctx, bob.PlayerID, model.MoveRock))

	result := s.lastEvent(alice.PlayerID)
	s.Require().Equal(model.EventGameResult, result.Type)
	payload := result.Payload.(model.GameResultPayload)
	s.Equal(model.OutcomeWin, payload.Outcome)
	s.Equal(model.MoveRock, payload.Opponent)
	s.Equal(1216, payload.Rating)

	// The leaderboard embedded in the result has alice on top
	s.Require().NotEmpty(payload.Leaderboard)
	s.Equal(alice.PlayerID, payload.Leaderboard[0].PlayerID)
	s.Equal(1, payload.Leaderboard[0].Rank)

	// Ratings survived to storage
	identity, err := s.app.Storage.GetIdentity(s.ctx, bob.PlayerID)
	s.Require().NoError(err)
	s.Equal(1184, identity.Rating)

	// Both players are free to queue again
	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, alice.PlayerID))
}

// Test: the slow player times out and the match is abandoned without
// a ratings change
func (s *IntegrationSuite) TestMoveTimeoutAbandonsMatch() {
	alice := s.signUp("alice@example.com")
	bob := s.signUp("bob@example.com")

	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, alice.PlayerID))
	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, bob.PlayerID))
	s.Require().NoError(s.app.MatchEngine.Submit(s.ctx, alice.PlayerID, model.MoveRock))

	s.app.MockClock.Advance(31 * time.Second)
	s.app.MatchEngine.SweepExpired(s.ctx)

	event := s.lastEvent(alice.PlayerID)
	s.Require().Equal(model.EventMatchAbandoned, event.Type)
	payload := event.Payload.(model.MatchAbandonedPayload)
	s.Equal(model.AbandonReasonTimeout, payload.Reason)
	s.Equal(model.DefaultRating, payload.Rating)

	s.False(s.app.MatchEngine.InMatch(alice.PlayerID))
	s.False(s.app.MatchEngine.InMatch(bob.PlayerID))
}

// Test: releasing a session mid-match forfeits it via the release hooks
func (s *IntegrationSuite) TestSessionReleaseForfeitsMatch() {
	alice := s.signUp("alice@example.com")
	bob := s.signUp("bob@example.com")

	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, alice.PlayerID))
	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, bob.PlayerID))

	s.app.AuthService.Release(alice.Token)

	event := s.lastEvent(bob.PlayerID)
	s.Require().Equal(model.EventMatchAbandoned, event.Type)
	s.Equal(model.AbandonReasonDisconnect, event.Payload.(model.MatchAbandonedPayload).Reason)
	s.False(s.app.MatchEngine.InMatch(bob.PlayerID))
}

// Test: releasing a queued session clears the queue entry
func (s *IntegrationSuite) TestSessionReleaseClearsQueue() {
	alice := s.signUp("alice@example.com")

	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, alice.PlayerID))
	s.Require().Equal(1, s.app.Matchmaker.Len())

	s.app.AuthService.Release(alice.Token)
	s.Equal(0, s.app.Matchmaker.Len())
}

// Test: a second login displaces the first session, and the displaced
// session's release forfeits the open match
func (s *IntegrationSuite) TestSecondLoginDisplacesAndForfeits() {
	alice := s.signUp("alice@example.com")
	bob := s.signUp("bob@example.com")

	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, alice.PlayerID))
	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, bob.PlayerID))
	s.True(s.app.MatchEngine.InMatch(alice.PlayerID))

	second, err := s.app.AuthService.Login(s.ctx, "alice@example.com", "hunter22")
	s.Require().NoError(err)
	s.NotEqual(alice.Token, second.Token)

	_, err = s.app.AuthService.Resolve(alice.Token)
	s.ErrorIs(err, auth.ErrInvalidToken)
	s.False(s.app.MatchEngine.InMatch(alice.PlayerID))
}

// Test: match chat flows between participants and is gated on
// participation
func (s *IntegrationSuite) TestMatchChat() {
	alice := s.signUp("alice@example.com")
	bob := s.signUp("bob@example.com")
	carol := s.signUp("carol@example.com")

	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, alice.PlayerID))
	s.Require().NoError(s.app.Matchmaker.Enqueue(s.ctx, bob.PlayerID))

	matchID, ok := s.app.MatchEngine.MatchFor(alice.PlayerID)
	s.Require().True(ok)
	scope := model.MatchScope(matchID)

	s.Require().NoError(s.app.ChatRelay.Publish(s.ctx, alice.PlayerID, scope, "good luck"))
	event := s.lastEvent(bob.PlayerID)
	s.Require().Equal(model.EventChat, event.Type)
	s.Equal("good luck", event.Payload.(model.ChatMessage).Text)

	err := s.app.ChatRelay.Publish(s.ctx, carol.PlayerID, scope, "me too")
	s.ErrorIs(err, model.ErrScopeNotJoined)

	// The scope's retained history goes away with the match
	s.Require().Len(s.app.ChatRelay.History(scope), 1)
	s.Require().NoError(s.app.MatchEngine.Submit(s.ctx, alice.PlayerID, model.MoveRock))
	s.Require().NoError(s.app.MatchEngine.Submit(s.ctx, bob.PlayerID, model.MoveScissors))
	s.Empty(s.app.ChatRelay.History(scope))
}

// Test: lobby chat reaches everyone via broadcast
func (s *IntegrationSuite) TestLobbyChat() {
	alice := s.signUp("alice@example.com")

	s.Require().NoError(s.app.ChatRelay.Publish(s.ctx, alice.PlayerID, model.ScopeLobby, "hello"))
	events := s.app.Sink.LobbyEvents()
	s.Require().Len(events, 1)
	s.Equal("hello", events[0].Payload.(model.ChatMessage).Text)
}
