package storage

import (
	"context"

	"github.com/mcoot/rpsduel-go/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Identity operations
	SaveIdentity(ctx context.Context, identity *model.Identity) error
	GetIdentity(ctx context.Context, id model.PlayerID) (*model.Identity, error)

	// UpdateRatings persists both identities of a rated pair in a single
	// atomic write, so a concurrent reader never sees one side updated.
	UpdateRatings(ctx context.Context, a, b *model.Identity) error

	// TopIdentities returns up to limit identities ordered by rating
	// descending, ties broken by earliest registration.
	TopIdentities(ctx context.Context, limit int) ([]*model.Identity, error)

	// NextRegistrationSeq allocates the next registration sequence number.
	NextRegistrationSeq(ctx context.Context) (int64, error)

	// Credential operations
	SaveCredential(ctx context.Context, cred *model.Credential) error
	GetCredential(ctx context.Context, id model.PlayerID) (*model.Credential, error)

	// Match archive operations
	SaveMatch(ctx context.Context, match *model.Match) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
}
