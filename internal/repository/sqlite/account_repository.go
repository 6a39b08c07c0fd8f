package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"maze-arcade/internal/domain"
	"maze-arcade/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	email TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	score INTEGER NOT NULL DEFAULT 0,
	best_time INTEGER NOT NULL DEFAULT 999999999,
	email_verified INTEGER NOT NULL DEFAULT 0,
	verification_token TEXT,
	verification_issued_at INTEGER,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.BestTimeMs == 0 {
		account.BestTimeMs = domain.BestTimeSentinel
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (email, name, password_hash, score, best_time, email_verified, created_at, updated_at)
VALUES (?, ?, ?, 0, ?, 0, ?, ?)`,
		account.Email,
		account.Name,
		account.PasswordHash,
		account.BestTimeMs,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateIdentity
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT email, name, password_hash, score, best_time, email_verified, verification_token, verification_issued_at, created_at, updated_at
FROM accounts
WHERE email = ?`,
		email,
	)
	return scanAccount(row)
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, email, newName, newEmail string) error {
	if newEmail != email {
		var count int
		err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE email = ?`, newEmail).Scan(&count)
		if err != nil {
			return fmt.Errorf("check email availability: %w", err)
		}
		if count > 0 {
			return repository.ErrDuplicateIdentity
		}
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET name = ?, email = ?, updated_at = ? WHERE email = ?`,
		newName, newEmail, time.Now().UTC(), email,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateIdentity
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return requireRow(res)
}

func (r *AccountRepository) IncrementScore(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET score = score + 1, updated_at = ? WHERE email = ?`,
		time.Now().UTC(), email,
	)
	if err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	return requireRow(res)
}

func (r *AccountRepository) LowerBestTime(ctx context.Context, email string, millis int64) error {
	// Conditional write: concurrent submissions cannot raise the best
	// time or clobber a lower one.
	_, err := r.db.ExecContext(ctx, `
UPDATE accounts SET best_time = ?, updated_at = ? WHERE email = ? AND best_time > ?`,
		millis, time.Now().UTC(), email, millis,
	)
	if err != nil {
		return fmt.Errorf("lower best time: %w", err)
	}
	return nil
}

func (r *AccountRepository) SetVerification(ctx context.Context, email string, verified bool, token string, issuedAt time.Time) error {
	var tok sql.NullString
	var issued sql.NullInt64
	if token != "" {
		tok = sql.NullString{String: token, Valid: true}
		issued = sql.NullInt64{Int64: issuedAt.Unix(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET email_verified = ?, verification_token = ?, verification_issued_at = ?, updated_at = ? WHERE email = ?`,
		verified, tok, issued, time.Now().UTC(), email,
	)
	if err != nil {
		return fmt.Errorf("set verification: %w", err)
	}
	return requireRow(res)
}

func (r *AccountRepository) ConsumeVerificationToken(ctx context.Context, email, token string, notBefore time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET email_verified = 1, verification_token = NULL, verification_issued_at = NULL, updated_at = ?
WHERE email = ? AND verification_token = ? AND verification_issued_at >= ?`,
		time.Now().UTC(), email, token, notBefore.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("consume verification token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume verification token: %w", err)
	}
	return n == 1, nil
}

func (r *AccountRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE email = ?`, email); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (r *AccountRepository) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT name, score, best_time FROM accounts ORDER BY score DESC, best_time ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Score, &e.BestTimeMs); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	return entries, nil
}

func scanAccount(row interface {
	Scan(dest ...any) error
}) (*domain.Account, error) {
	var (
		account domain.Account
		token   sql.NullString
		issued  sql.NullInt64
	)
	if err := row.Scan(
		&account.Email,
		&account.Name,
		&account.PasswordHash,
		&account.Score,
		&account.BestTimeMs,
		&account.EmailVerified,
		&token,
		&issued,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if token.Valid {
		account.VerificationToken = token.String
		account.VerificationIssuedAt = time.Unix(issued.Int64, 0).UTC()
	}
	return &account, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
