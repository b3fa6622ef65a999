package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) Create(customer domain.Customer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (
			id, name, email, email_normalized,
			status, tier, source, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		customer.ID, customer.Name, customer.Email, customer.NormalizedEmail(),
		string(customer.Status), string(customer.Tier), string(customer.Source),
		customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCustomerExists
		}
		return fmt.Errorf("insert customer: %w", err)
	}

	return nil
}

func (r *customerRepository) Get(id string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, status, tier, source, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id))
}

func (r *customerRepository) FindByEmail(email string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}

	// При нескольких совпадениях берём самую старую запись: она считается
	// канонической личностью покупателя.
	return r.scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, status, tier, source, created_at, updated_at
		FROM customers
		WHERE email_normalized = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, normalized))
}

func (r *customerRepository) scanCustomer(row *sql.Row) (domain.Customer, error) {
	var customer domain.Customer
	var status, tier, source string

	err := row.Scan(
		&customer.ID, &customer.Name, &customer.Email,
		&status, &tier, &source,
		&customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}

	customer.Status = domain.CustomerStatus(status)
	customer.Tier = domain.CustomerTier(tier)
	customer.Source = domain.CustomerSource(source)
	return customer, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
