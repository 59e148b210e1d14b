package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"aeternis-checkout/internal/domain"
	"aeternis-checkout/internal/domain/model"
	"aeternis-checkout/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderCols = `id, number, customer_email, profiles, line_items, total_amount, catalog_version, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var profiles, items []byte
	if err := row.Scan(&o.ID, &o.Number, &o.CustomerEmail, &profiles, &items, &o.TotalAmount, &o.CatalogVersion, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(profiles, &o.Profiles); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(items, &o.LineItems); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	profiles, err := json.Marshal(o.Profiles)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	items, err := json.Marshal(o.LineItems)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	// Profiles, line items and total are immutable after the first write; the
	// conflict arm only refreshes updated_at so Save stays idempotent.
	const q = `
INSERT INTO orders (
  id, number, customer_email, profiles, line_items, total_amount, catalog_version, status, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET updated_at=$10;`

	_, err = execSQL(ctx, r.pool, tx, q, o.ID, o.Number, o.CustomerEmail, profiles, items, o.TotalAmount, o.CatalogVersion, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) ListByEmail(ctx context.Context, tx repository.Tx, email string) ([]*model.Order, error) {
	const q = `SELECT ` + orderCols + ` FROM orders WHERE customer_email=LOWER($1) ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, email)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// legalSources returns the statuses from which `to` is reachable.
func legalSources(to model.OrderStatus) []string {
	var out []string
	for _, s := range []model.OrderStatus{
		model.OrderStatusCreated,
		model.OrderStatusAwaitingPayment,
		model.OrderStatusPaid,
		model.OrderStatusExpired,
		model.OrderStatusPaymentFailed,
	} {
		if s.CanTransition(to) {
			out = append(out, string(s))
		}
	}
	return out
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus) error {
	// The source-status guard lives in the WHERE clause so an illegal
	// transition can never race past the check.
	const q = `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1 AND status = ANY($3);`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), legalSources(status))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

func (r *orderRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.OrderStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM orders GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	out := make(map[model.OrderStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.OrderStatus(status)] = n
	}
	return out, nil
}
