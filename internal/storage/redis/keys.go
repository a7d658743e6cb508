package redis

import (
	"fmt"

	"github.com/mcoot/rpsduel-go/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "rpsduel"

// seqRange spreads leaderboard scores so that rating dominates and the
// registration sequence breaks ties (earlier registration scores higher).
// Safe in a float64 mantissa for any realistic rating and player count.
const seqRange = 1 << 26

// identityKey returns the Redis key for an Identity
func identityKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:identity:%s", keyPrefix, id)
}

// credentialKey returns the Redis key for a Credential
func credentialKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, id)
}

// matchKey returns the Redis key for an archived Match
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// leaderboardKey returns the Redis key for the rating ZSET index
func leaderboardKey() string {
	return fmt.Sprintf("%s:idx:leaderboard", keyPrefix)
}

// registrationSeqKey returns the Redis key for the registration counter
func registrationSeqKey() string {
	return fmt.Sprintf("%s:seq:registration", keyPrefix)
}

// leaderboardScore encodes (rating desc, seq asc) into one ZSET score.
func leaderboardScore(identity *model.Identity) float64 {
	return float64(identity.Rating)*seqRange - float64(identity.Seq)
}
