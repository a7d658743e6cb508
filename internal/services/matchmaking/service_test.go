package matchmaking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/rpsduel-go/internal/dependencies/mocks"
	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/services/match"
	"github.com/mcoot/rpsduel-go/internal/services/matchmaking"
	"github.com/mcoot/rpsduel-go/internal/services/rating"
	"github.com/mcoot/rpsduel-go/internal/storage/memory"
	"github.com/mcoot/rpsduel-go/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	storage *memory.Storage
	clock   *mocks.MockClock
	sink    *testutil.RecordingSink
	engine  *match.Engine
	service *matchmaking.Service
}

const (
	alice = model.PlayerID("alice@example.com")
	bob   = model.PlayerID("bob@example.com")
	carol = model.PlayerID("carol@example.com")
	dave  = model.PlayerID("dave@example.com")
)

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.sink = testutil.NewRecordingSink()
	logger := testutil.NopLogger()
	ratingSvc := rating.New(s.storage, rating.DefaultConfig(), logger)
	s.engine = match.New(s.storage, ratingSvc, s.sink, s.clock, match.DefaultConfig(), logger)
	s.service = matchmaking.New(s.engine, s.sink, s.clock, logger)

	for _, p := range []model.PlayerID{alice, bob, carol, dave} {
		seq, err := s.storage.NextRegistrationSeq(s.ctx)
		s.Require().NoError(err)
		s.Require().NoError(s.storage.SaveIdentity(s.ctx, &model.Identity{
			ID:        p,
			Rating:    model.DefaultRating,
			Seq:       seq,
			CreatedAt: s.clock.Now(),
		}))
	}
}

func (s *ServiceSuite) TestLoneEnqueueWaits() {
	s.Require().NoError(s.service.Enqueue(s.ctx, alice))
	s.Equal(1, s.service.Len())

	event, ok := s.sink.LastFor(alice)
	s.Require().True(ok)
	s.Equal(model.EventQueued, event.Type)
	s.Equal(model.QueuedPayload{Position: 1}, event.Payload)
}

func (s *ServiceSuite) TestSecondEnqueuePairsImmediately() {
	s.Require().NoError(s.service.Enqueue(s.ctx, alice))
	s.Require().NoError(s.service.Enqueue(s.ctx, bob))

	s.Equal(0, s.service.Len())
	s.True(s.engine.InMatch(alice))
	s.True(s.engine.InMatch(bob))

	for _, p := range []model.PlayerID{alice, bob} {
		event, ok := s.sink.LastFor(p)
		s.Require().True(ok)
		s.Equal(model.EventMatchFound, event.Type)
	}
}

func (s *ServiceSuite) TestPairsInArrivalOrder() {
	s.Require().NoError(s.service.Enqueue(s.ctx, alice))
	s.Require().NoError(s.service.Enqueue(s.ctx, bob))
	s.Require().NoError(s.service.Enqueue(s.ctx, carol))
	s.Require().NoError(s.service.Enqueue(s.ctx, dave))

	// first arrivals pair with each other, later arrivals with each other
	event, ok := s.sink.LastFor(alice)
	s.Require().True(ok)
	s.Equal(bob, event.Payload.(model.MatchFoundPayload).Opponent)

	event, ok = s.sink.LastFor(carol)
	s.Require().True(ok)
	s.Equal(dave, event.Payload.(model.MatchFoundPayload).Opponent)
}

func (s *ServiceSuite) TestDuplicateEnqueueRejected() {
	s.Require().NoError(s.service.Enqueue(s.ctx, alice))
	err := s.service.Enqueue(s.ctx, alice)
	s.ErrorIs(err, model.ErrAlreadyQueued)
	s.Equal(1, s.service.Len())
}

func (s *ServiceSuite) TestEnqueueWhileInMatchRejected() {
	s.Require().NoError(s.service.Enqueue(s.ctx, alice))
	s.Require().NoError(s.service.Enqueue(s.ctx, bob))

	err := s.service.Enqueue(s.ctx, alice)
	s.ErrorIs(err, model.ErrAlreadyInMatch)
}

func (s *ServiceSuite) TestCancelRemovesEntry() {
	s.Require().NoError(s.service.Enqueue(s.ctx, alice))
	s.service.Cancel(alice)
	s.Equal(0, s.service.Len())

	// alice can come back, and bob pairs with carol, not the ghost entry
	s.Require().NoError(s.service.Enqueue(s.ctx, bob))
	s.Require().NoError(s.service.Enqueue(s.ctx, carol))
	s.True(s.engine.InMatch(bob))
	s.False(s.engine.InMatch(alice))
}

func (s *ServiceSuite) TestCancelUnknownIsNoop() {
	s.service.Cancel(alice)
	s.Equal(0, s.service.Len())
}

func (s *ServiceSuite) TestRequeueAfterCancel() {
	s.Require().NoError(s.service.Enqueue(s.ctx, alice))
	s.service.Cancel(alice)
	s.Require().NoError(s.service.Enqueue(s.ctx, alice))
	s.Equal(1, s.service.Len())
}

func (s *ServiceSuite) TestConcurrentEnqueueNeverDoublePairs() {
	const players = 20
	pool := make([]model.PlayerID, 0, players)
	for i := 0; i < players; i++ {
		p := model.PlayerID(fmt.Sprintf("player%02d@example.com", i))
		seq, err := s.storage.NextRegistrationSeq(s.ctx)
		s.Require().NoError(err)
		s.Require().NoError(s.storage.SaveIdentity(s.ctx, &model.Identity{
			ID:        p,
			Rating:    model.DefaultRating,
			Seq:       seq,
			CreatedAt: s.clock.Now(),
		}))
		pool = append(pool, p)
	}

	// Every player races three enqueue attempts; exactly one may win,
	// the rest must be rejected as already queued or already matched
	var wg sync.WaitGroup
	for _, p := range pool {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.service.Enqueue(s.ctx, p)
				if err != nil {
					ok := errors.Is(err, model.ErrAlreadyQueued) || errors.Is(err, model.ErrAlreadyInMatch)
					s.True(ok, "unexpected enqueue error for %s: %v", p, err)
				}
			}()
		}
	}
	wg.Wait()

	// An even pool drains completely into matches
	s.Equal(0, s.service.Len())
	s.Equal(players/2, s.engine.OpenMatches())

	// No player sits in two open matches: each player resolves to one
	// match, and each match holds exactly two players
	perMatch := make(map[model.MatchID]int)
	for _, p := range pool {
		id, ok := s.engine.MatchFor(p)
		s.Require().True(ok, "%s should have an open match", p)
		perMatch[id]++
	}
	s.Len(perMatch, players/2)
	for id, n := range perMatch {
		s.Equal(2, n, "match %s", id)
	}
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
