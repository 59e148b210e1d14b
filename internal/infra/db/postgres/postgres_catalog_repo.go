package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/repository"
)

var _ repository.CatalogRepository = (*catalogRepo)(nil)

// catalogRepo stores each snapshot as a single JSONB document keyed by
// version. Snapshots never change after insert.
type catalogRepo struct{ pool *pgxpool.Pool }

func NewCatalogRepo(pool *pgxpool.Pool) *catalogRepo {
	return &catalogRepo{pool: pool}
}

func scanSnapshot(row pgx.Row) (*model.Snapshot, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s := &model.Snapshot{}
	if err := json.Unmarshal(payload, s); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *catalogRepo) ActiveSnapshot(ctx context.Context, tx repository.Tx) (*model.Snapshot, error) {
	const q = `SELECT payload FROM catalog_snapshots ORDER BY version DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	return scanSnapshot(row)
}

func (r *catalogRepo) SnapshotByVersion(ctx context.Context, tx repository.Tx, version int) (*model.Snapshot, error) {
	const q = `SELECT payload FROM catalog_snapshots WHERE version=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, version)
	if err != nil {
		return nil, err
	}
	return scanSnapshot(row)
}

func (r *catalogRepo) SaveSnapshot(ctx context.Context, tx repository.Tx, s *model.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	const q = `INSERT INTO catalog_snapshots (version, payload, created_at) VALUES ($1,$2,$3);`
	_, err = execSQL(ctx, r.pool, tx, q, s.Version, payload, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
