package service

import (
	"context"

	"maze-arcade/internal/domain"
	"maze-arcade/internal/repository"
)

// ScoreLedger records completed maze runs against the account.
type ScoreLedger struct {
	accounts repository.AccountRepository
	sessions *SessionManager
}

func NewScoreLedger(accounts repository.AccountRepository, sessions *SessionManager) *ScoreLedger {
	return &ScoreLedger{
		accounts: accounts,
		sessions: sessions,
	}
}

// RecordRun applies one completed run: the score always increments by
// exactly one, and the best time is lowered only when elapsedMillis
// beats it. Both writes are conditional at the store, so two sessions
// for the same account cannot lose each other's updates. The session
// snapshot is refreshed afterwards so the next call in this session
// compares against current state.
//
// Each call is trusted to be one genuinely completed run; a replayed
// submission double-counts the score.
func (l *ScoreLedger) RecordRun(ctx context.Context, sessionID string, elapsedMillis int64) (domain.Session, error) {
	session, err := l.sessions.RequireVerified(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if elapsedMillis < 0 {
		return domain.Session{}, ErrInvalidElapsed
	}

	if err := l.accounts.IncrementScore(ctx, session.Email); err != nil {
		return domain.Session{}, err
	}
	if err := l.accounts.LowerBestTime(ctx, session.Email, elapsedMillis); err != nil {
		return domain.Session{}, err
	}

	return l.sessions.Refresh(ctx, sessionID)
}
