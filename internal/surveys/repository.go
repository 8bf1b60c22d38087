package surveys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surveychain/backend/internal/ledger"
	"github.com/surveychain/backend/internal/models"
)

const uniqueViolation = "23505"

// Repository is the Postgres-backed survey store. Each survey is one row whose document column
// holds the whole aggregate; creator, version and finalized are mirrored for indexing.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository creates a survey repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Insert stores a new survey.
func (r *Repository) Insert(ctx context.Context, s *models.Survey) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal survey: %w", err)
	}
	const q = `INSERT INTO surveys (id, creator, version, finalized, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.pool.Exec(ctx, q, s.ID, s.Creator, s.Version, s.Finalized, doc, s.CreatedAt, s.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &ledger.Error{Kind: ledger.KindConflict, Msg: "survey id already exists"}
	}
	return err
}

// Get returns a survey by ID.
func (r *Repository) Get(ctx context.Context, id string) (*models.Survey, error) {
	const q = `SELECT document FROM surveys WHERE id = $1`
	var doc []byte
	err := r.pool.QueryRow(ctx, q, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrSurveyNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

// List returns all surveys, oldest first.
func (r *Repository) List(ctx context.Context) ([]*models.Survey, error) {
	const q = `SELECT document FROM surveys ORDER BY created_at, id`
	return r.query(ctx, q)
}

// ListByCreator returns surveys created by a canonical address.
func (r *Repository) ListByCreator(ctx context.Context, creator string) ([]*models.Survey, error) {
	const q = `SELECT document FROM surveys WHERE creator = $1 ORDER BY created_at, id`
	return r.query(ctx, q, creator)
}

// ListByResponder returns surveys with a response from a canonical address.
func (r *Repository) ListByResponder(ctx context.Context, responder string) ([]*models.Survey, error) {
	const q = `SELECT document FROM surveys
		WHERE document->'responses' @> jsonb_build_array(jsonb_build_object('responder', $1::text))
		ORDER BY created_at, id`
	return r.query(ctx, q, responder)
}

// ListByApplicant returns surveys a canonical address applied to.
func (r *Repository) ListByApplicant(ctx context.Context, applicant string) ([]*models.Survey, error) {
	const q = `SELECT document FROM surveys
		WHERE document->'applicants' @> jsonb_build_array(jsonb_build_object('address', $1::text))
		ORDER BY created_at, id`
	return r.query(ctx, q, applicant)
}

// Update locks the row, applies fn and writes the result with the next version in one transaction.
func (r *Repository) Update(ctx context.Context, id string, fn ledger.UpdateFunc) (*models.Survey, error) {
	var out *models.Survey
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const sel = `SELECT document FROM surveys WHERE id = $1 FOR UPDATE`
		var doc []byte
		err := tx.QueryRow(ctx, sel, id).Scan(&doc)
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrSurveyNotFound
		}
		if err != nil {
			return err
		}
		s, err := decode(doc)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		s.Version++
		s.UpdatedAt = r.now()

		next, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal survey: %w", err)
		}
		const upd = `UPDATE surveys SET document = $2, version = $3, finalized = $4, updated_at = $5 WHERE id = $1`
		if _, err := tx.Exec(ctx, upd, id, next, s.Version, s.Finalized, s.UpdatedAt); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) query(ctx context.Context, q string, args ...interface{}) ([]*models.Survey, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.Survey{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		s, err := decode(doc)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func decode(doc []byte) (*models.Survey, error) {
	var s models.Survey
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode survey: %w", err)
	}
	return &s, nil
}
