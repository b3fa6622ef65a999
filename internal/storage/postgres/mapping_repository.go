package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

type mappingRepository struct {
	db *sql.DB
}

// NewMappingRepository создаёт PostgreSQL-реализацию MappingRepository.
func NewMappingRepository(store *Store) domain.MappingRepository {
	return &mappingRepository{db: store.DB()}
}

func (r *mappingRepository) Get(platform domain.Channel, externalCustomerID string) (domain.ExternalIdentityMapping, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var mapping domain.ExternalIdentityMapping
	var platformRaw string

	err := r.db.QueryRowContext(ctx, `
		SELECT platform, external_customer_id, customer_id, created_at
		FROM external_identity_mappings
		WHERE platform = $1 AND external_customer_id = $2
	`, string(platform), externalCustomerID).Scan(
		&platformRaw, &mapping.ExternalCustomerID, &mapping.CustomerID, &mapping.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ExternalIdentityMapping{}, domain.ErrMappingNotFound
		}
		return domain.ExternalIdentityMapping{}, fmt.Errorf("select identity mapping: %w", err)
	}

	mapping.Platform = domain.Channel(platformRaw)
	return mapping, nil
}

func (r *mappingRepository) Create(mapping domain.ExternalIdentityMapping) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO external_identity_mappings (
			platform, external_customer_id, customer_id, created_at
		) VALUES ($1,$2,$3,$4)
	`,
		string(mapping.Platform), mapping.ExternalCustomerID,
		mapping.CustomerID, mapping.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrMappingExists
		}
		return fmt.Errorf("insert identity mapping: %w", err)
	}

	return nil
}

var _ domain.MappingRepository = (*mappingRepository)(nil)
