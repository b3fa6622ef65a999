package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

const opTimeout = 5 * time.Second

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository создаёт PostgreSQL-реализацию SaleRepository.
func NewSaleRepository(store *Store) domain.SaleRepository {
	return &saleRepository{db: store.DB()}
}

func (r *saleRepository) Create(sale domain.Sale) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, channel, external_order_id, customer_id,
			fulfillment_status, payment_status, sale_status,
			total_amount_minor, platform_fees_minor,
			picking_list_id, tracking_number, shipping_provider,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		sale.ID, string(sale.Channel), sale.ExternalOrderID, sale.CustomerID,
		string(sale.FulfillmentStatus), string(sale.PaymentStatus), string(sale.SaleStatus),
		sale.TotalAmountMinor, sale.PlatformFeesMinor,
		sale.PickingListID, sale.TrackingNumber, sale.ShippingProvider,
		sale.Version, sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSaleVersionConflict
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, item := range sale.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (
				id, sale_id, name, qty, unit_price_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			item.ID, sale.ID, item.Name, item.Qty, item.UnitPriceMinor, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create sale: %w", err)
	}

	return nil
}

func (r *saleRepository) Get(id string) (domain.Sale, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	sale, err := r.scanSale(r.db.QueryRowContext(ctx, `
		SELECT id, channel, external_order_id, customer_id,
		       fulfillment_status, payment_status, sale_status,
		       total_amount_minor, platform_fees_minor,
		       picking_list_id, tracking_number, shipping_provider,
		       version, created_at, updated_at
		FROM sales
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sale{}, domain.ErrSaleNotFound
		}
		return domain.Sale{}, fmt.Errorf("select sale: %w", err)
	}

	items, err := r.loadItems(ctx, sale.ID)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Items = items

	return sale, nil
}

func (r *saleRepository) List(filter domain.SaleFilter) ([]domain.Sale, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, channel, external_order_id, customer_id,
		       fulfillment_status, payment_status, sale_status,
		       total_amount_minor, platform_fees_minor,
		       picking_list_id, tracking_number, shipping_provider,
		       version, created_at, updated_at
		FROM sales
		WHERE ($1 = '' OR channel = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at DESC, id DESC
	`

	var since, until *time.Time
	if !filter.Since.IsZero() {
		since = &filter.Since
	}
	if !filter.Until.IsZero() {
		until = &filter.Until
	}

	rows, err := r.db.QueryContext(ctx, query, string(filter.Channel), since, until)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0)
	for rows.Next() {
		sale, err := r.scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}

		items, err := r.loadItems(ctx, sale.ID)
		if err != nil {
			return nil, err
		}
		sale.Items = items
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale rows: %w", err)
	}

	return sales, nil
}

func (r *saleRepository) ListExternalKeys() (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT channel, external_order_id
		FROM sales
		WHERE external_order_id <> ''
	`)
	if err != nil {
		return nil, fmt.Errorf("list external keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var channel, externalID string
		if err := rows.Scan(&channel, &externalID); err != nil {
			return nil, fmt.Errorf("scan external key: %w", err)
		}
		keys[domain.ExternalOrderKey(domain.Channel(channel), externalID)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate external keys: %w", err)
	}

	return keys, nil
}

func (r *saleRepository) Save(sale domain.Sale) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE sales
		SET fulfillment_status = $1,
		    payment_status = $2,
		    sale_status = $3,
		    total_amount_minor = $4,
		    platform_fees_minor = $5,
		    picking_list_id = $6,
		    tracking_number = $7,
		    shipping_provider = $8,
		    version = version + 1,
		    updated_at = $9
		WHERE id = $10
		  AND version = $11
	`,
		string(sale.FulfillmentStatus),
		string(sale.PaymentStatus),
		string(sale.SaleStatus),
		sale.TotalAmountMinor,
		sale.PlatformFeesMinor,
		sale.PickingListID,
		sale.TrackingNumber,
		sale.ShippingProvider,
		sale.UpdatedAt,
		sale.ID,
		sale.Version,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.saleExists(ctx, sale.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrSaleNotFound
		}
		return domain.ErrSaleVersionConflict
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *saleRepository) scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	var channel, fulfillment, payment, status string

	err := row.Scan(
		&sale.ID, &channel, &sale.ExternalOrderID, &sale.CustomerID,
		&fulfillment, &payment, &status,
		&sale.TotalAmountMinor, &sale.PlatformFeesMinor,
		&sale.PickingListID, &sale.TrackingNumber, &sale.ShippingProvider,
		&sale.Version, &sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		return domain.Sale{}, err
	}

	sale.Channel = domain.Channel(channel)
	sale.FulfillmentStatus = domain.FulfillmentStatus(fulfillment)
	sale.PaymentStatus = domain.PaymentStatus(payment)
	sale.SaleStatus = domain.SaleStatus(status)
	return sale, nil
}

func (r *saleRepository) loadItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, qty, unit_price_minor, created_at
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY created_at ASC, id ASC
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Qty, &item.UnitPriceMinor, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale items: %w", err)
	}

	return items, nil
}

func (r *saleRepository) saleExists(ctx context.Context, saleID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM sales WHERE id = $1`, saleID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check sale exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.SaleRepository = (*saleRepository)(nil)
