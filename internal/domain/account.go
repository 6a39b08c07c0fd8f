package domain

import "time"

// BestTimeSentinel is the initial best time of a freshly registered
// account, meaning "no run recorded yet". It only ever decreases.
const BestTimeSentinel = 999999999

// Account represents a registered player of the maze.
type Account struct {
	Email         string
	Name          string
	PasswordHash  string
	Score         int64
	BestTimeMs    int64
	EmailVerified bool

	// VerificationToken and VerificationIssuedAt are set and cleared
	// together; a token without its issue time is never persisted.
	VerificationToken    string
	VerificationIssuedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LeaderboardEntry is the public projection of an account shown on the
// shared leaderboard. Display name only, no other account details.
type LeaderboardEntry struct {
	Name       string
	Score      int64
	BestTimeMs int64
}
