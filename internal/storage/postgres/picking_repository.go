package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

type pickingRepository struct {
	db *sql.DB
}

// NewPickingRepository создаёт PostgreSQL-реализацию PickingListRepository.
func NewPickingRepository(store *Store) domain.PickingListRepository {
	return &pickingRepository{db: store.DB()}
}

func (r *pickingRepository) Create(list domain.PickingList) error {
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
		INSERT INTO picking_lists (
			id, sale_id, status, assigned_to, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		list.ID, list.SaleID, string(list.Status), list.AssignedTo,
		list.Version, list.CreatedAt, list.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSaleVersionConflict
		}
		return fmt.Errorf("insert picking list: %w", err)
	}

	if err = r.insertItems(ctx, tx, list.ID, list.Items); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create picking list: %w", err)
	}

	return nil
}

func (r *pickingRepository) Get(id string) (domain.PickingList, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	list, err := r.scanList(r.db.QueryRowContext(ctx, `
		SELECT id, sale_id, status, assigned_to, version, created_at, updated_at
		FROM picking_lists
		WHERE id = $1
	`, id))
	if err != nil {
		return domain.PickingList{}, err
	}

	items, err := r.loadItems(ctx, list.ID)
	if err != nil {
		return domain.PickingList{}, err
	}
	list.Items = items

	return list, nil
}

func (r *pickingRepository) FindOpenBySale(saleID string) (domain.PickingList, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	list, err := r.scanList(r.db.QueryRowContext(ctx, `
		SELECT id, sale_id, status, assigned_to, version, created_at, updated_at
		FROM picking_lists
		WHERE sale_id = $1
		  AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC
		LIMIT 1
	`, saleID))
	if err != nil {
		return domain.PickingList{}, err
	}

	items, err := r.loadItems(ctx, list.ID)
	if err != nil {
		return domain.PickingList{}, err
	}
	list.Items = items

	return list, nil
}

func (r *pickingRepository) Save(list domain.PickingList) error {
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

	res, err := tx.ExecContext(ctx, `
		UPDATE picking_lists
		SET sale_id = $1,
		    status = $2,
		    assigned_to = $3,
		    version = version + 1,
		    updated_at = $4
		WHERE id = $5
		  AND version = $6
	`,
		list.SaleID, string(list.Status), list.AssignedTo,
		list.UpdatedAt, list.ID, list.Version,
	)
	if err != nil {
		return fmt.Errorf("update picking list: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		exists, err = r.listExists(ctx, tx, list.ID)
		if err != nil {
			return err
		}
		if !exists {
			err = domain.ErrPickingListNotFound
			return err
		}
		err = domain.ErrSaleVersionConflict
		return err
	}

	// Позиции перезаписываются целиком: их немного, а дифф усложнил бы код.
	if _, err = tx.ExecContext(ctx, `DELETE FROM picking_list_items WHERE picking_list_id = $1`, list.ID); err != nil {
		return fmt.Errorf("delete picking list items: %w", err)
	}
	if err = r.insertItems(ctx, tx, list.ID, list.Items); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save picking list: %w", err)
	}

	return nil
}

func (r *pickingRepository) insertItems(ctx context.Context, tx *sql.Tx, listID string, items []domain.PickingItem) error {
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO picking_list_items (
				id, picking_list_id, material_id, name, required_qty, picked_qty
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			item.ID, listID, item.MaterialID, item.Name, item.RequiredQty, item.PickedQty,
		); err != nil {
			return fmt.Errorf("insert picking list item: %w", err)
		}
	}
	return nil
}

func (r *pickingRepository) scanList(row *sql.Row) (domain.PickingList, error) {
	var list domain.PickingList
	var status string

	err := row.Scan(
		&list.ID, &list.SaleID, &status, &list.AssignedTo,
		&list.Version, &list.CreatedAt, &list.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PickingList{}, domain.ErrPickingListNotFound
		}
		return domain.PickingList{}, fmt.Errorf("select picking list: %w", err)
	}

	list.Status = domain.PickingStatus(status)
	return list, nil
}

func (r *pickingRepository) loadItems(ctx context.Context, listID string) ([]domain.PickingItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, material_id, name, required_qty, picked_qty
		FROM picking_list_items
		WHERE picking_list_id = $1
		ORDER BY id ASC
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("load picking list items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.PickingItem, 0)
	for rows.Next() {
		var item domain.PickingItem
		if err := rows.Scan(&item.ID, &item.MaterialID, &item.Name, &item.RequiredQty, &item.PickedQty); err != nil {
			return nil, fmt.Errorf("scan picking list item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate picking list items: %w", err)
	}

	return items, nil
}

func (r *pickingRepository) listExists(ctx context.Context, tx *sql.Tx, listID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM picking_lists WHERE id = $1`, listID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check picking list exists: %w", err)
}

var _ domain.PickingListRepository = (*pickingRepository)(nil)
