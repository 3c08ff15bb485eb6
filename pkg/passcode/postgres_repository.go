package passcode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const passcodeColumns = `id, user_ref, code, created_at, expires_at, consumed_at`

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL passcode repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// querier is the subset of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PostgresRepository) InvalidateActive(ctx context.Context, userRef string, now time.Time) (int64, error) {
	return invalidateActive(ctx, r.pool, userRef)
}

func (r *PostgresRepository) Create(ctx context.Context, params CreateParams) (Passcode, error) {
	return createPasscode(ctx, r.pool, params)
}

// Issue serializes issuance per user with a transaction-scoped advisory lock,
// then replaces the user's unconsumed rows with the new one.
func (r *PostgresRepository) Issue(ctx context.Context, params CreateParams) (Passcode, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Passcode{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, params.UserRef); err != nil {
		return Passcode{}, fmt.Errorf("failed to lock user passcodes: %w", err)
	}

	if _, err := invalidateActive(ctx, tx, params.UserRef); err != nil {
		return Passcode{}, err
	}

	p, err := createPasscode(ctx, tx, params)
	if err != nil {
		return Passcode{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Passcode{}, fmt.Errorf("failed to commit passcode: %w", err)
	}

	return p, nil
}

// ConsumeByCode locks the newest active row for code and marks it consumed.
// A concurrent caller waiting on the row lock re-evaluates the predicate after
// the first commits and finds nothing.
func (r *PostgresRepository) ConsumeByCode(ctx context.Context, code string, now time.Time) (Passcode, error) {
	query := `
		UPDATE mfa_passcode SET consumed_at = $2
		WHERE id = (
			SELECT id FROM mfa_passcode
			WHERE code = $1 AND consumed_at IS NULL AND expires_at > $2
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE
		) AND consumed_at IS NULL
		RETURNING ` + passcodeColumns

	p, err := scanPasscode(r.pool.QueryRow(ctx, query, code, now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Passcode{}, ErrPasscodeNotFound
		}
		return Passcode{}, fmt.Errorf("failed to consume passcode: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) FindActiveByUser(ctx context.Context, userRef string, now time.Time) ([]Passcode, error) {
	query := `
		SELECT ` + passcodeColumns + `
		FROM mfa_passcode
		WHERE user_ref = $1 AND consumed_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userRef, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to find active passcodes: %w", err)
	}
	defer rows.Close()

	var res []Passcode
	for rows.Next() {
		p, err := scanPasscode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan passcode: %w", err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate passcodes: %w", err)
	}

	return res, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM mfa_passcode WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired passcodes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func invalidateActive(ctx context.Context, q querier, userRef string) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM mfa_passcode WHERE user_ref = $1 AND consumed_at IS NULL`, userRef)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate active passcodes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func createPasscode(ctx context.Context, q querier, params CreateParams) (Passcode, error) {
	p := newPasscode(params)

	query := `
		INSERT INTO mfa_passcode (id, user_ref, code, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + passcodeColumns

	created, err := scanPasscode(q.QueryRow(ctx, query, p.ID, p.UserRef, p.Code, p.CreatedAt, p.ExpiresAt))
	if err != nil {
		return Passcode{}, fmt.Errorf("failed to create passcode: %w", err)
	}

	return created, nil
}

func scanPasscode(row pgx.Row) (Passcode, error) {
	var (
		p          Passcode
		consumedAt sql.NullTime
	)

	err := row.Scan(&p.ID, &p.UserRef, &p.Code, &p.CreatedAt, &p.ExpiresAt, &consumedAt)
	if err != nil {
		return Passcode{}, err
	}

	p.CreatedAt = p.CreatedAt.UTC()
	p.ExpiresAt = p.ExpiresAt.UTC()
	if consumedAt.Valid {
		t := consumedAt.Time.UTC()
		p.ConsumedAt = &t
	}

	return p, nil
}
