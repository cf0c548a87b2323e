package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ihavelanded/ms-go-esim/app/entity"
)

const orderColumns = `
	session_id, email, status, price_id, location_code, package_code,
	carrier_order_no, iccid, activation_code, message,
	amount_total_cents, currency, metadata_json, created_at, updated_at
`

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Save upserts the order keyed by session id. The orchestration re-derives
// the outcome on every poll, so writes are last-writer-wins per session.
func (r *OrderRepository) Save(ctx context.Context, order *entity.Order) error {
	metadataJSON, err := serializeMetadata(order.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			session_id, email, status, price_id, location_code, package_code,
			carrier_order_no, iccid, activation_code, message,
			amount_total_cents, currency, metadata_json, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			email = VALUES(email),
			status = VALUES(status),
			price_id = VALUES(price_id),
			location_code = VALUES(location_code),
			package_code = VALUES(package_code),
			carrier_order_no = VALUES(carrier_order_no),
			iccid = VALUES(iccid),
			activation_code = VALUES(activation_code),
			message = VALUES(message),
			amount_total_cents = VALUES(amount_total_cents),
			currency = VALUES(currency),
			metadata_json = VALUES(metadata_json),
			updated_at = VALUES(updated_at)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.SessionID,
		order.Email,
		order.Status,
		order.PriceID,
		order.LocationCode,
		order.PackageCode,
		nullableStringValue(order.CarrierOrderNo),
		nullableStringValue(order.ICCID),
		nullableStringValue(order.ActivationCode),
		nullableStringValue(order.Message),
		order.AmountTotalCents,
		order.Currency,
		metadataJSON,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return err
}

func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE session_id = ?`

	row := r.db.QueryRowContext(ctx, query, sessionID)
	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) FindByEmail(ctx context.Context, email string) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE email = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrderRows(rows)
}

func (r *OrderRepository) ListStalePending(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ? AND carrier_order_no IS NOT NULL AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.OrderStatusPending, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrderRows(rows)
}

func (r *OrderRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ? AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.OrderStatusPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrderRows(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrderRow(scanner rowScanner) (*entity.Order, error) {
	var (
		order          entity.Order
		carrierOrderNo sql.NullString
		iccid          sql.NullString
		activationCode sql.NullString
		message        sql.NullString
		metadataJSON   string
	)

	err := scanner.Scan(
		&order.SessionID,
		&order.Email,
		&order.Status,
		&order.PriceID,
		&order.LocationCode,
		&order.PackageCode,
		&carrierOrderNo,
		&iccid,
		&activationCode,
		&message,
		&order.AmountTotalCents,
		&order.Currency,
		&metadataJSON,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.CarrierOrderNo = stringPtrFromNull(carrierOrderNo)
	order.ICCID = stringPtrFromNull(iccid)
	order.ActivationCode = stringPtrFromNull(activationCode)
	order.Message = stringPtrFromNull(message)

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}
	order.Metadata = metadata

	return &order, nil
}

func scanOrderRows(rows *sql.Rows) ([]*entity.Order, error) {
	items := make([]*entity.Order, 0)
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, order)
	}
	return items, rows.Err()
}
