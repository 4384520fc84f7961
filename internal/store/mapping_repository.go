package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

// MappingRepository reads and seeds dl_account_mappings
type MappingRepository struct {
	pool *pgxpool.Pool
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(pool *pgxpool.Pool) *MappingRepository {
	return &MappingRepository{pool: pool}
}

var _ contracts.MappingLoader = (*MappingRepository)(nil)

// LoadMappings returns every mapping row ordered by key
func (r *MappingRepository) LoadMappings(ctx context.Context) ([]contracts.AccountMapping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT normalized_key, COALESCE(xbrl_account_id, ''), primary_kr_name,
		       COALESCE(alias_1, ''), COALESCE(alias_2, ''), COALESCE(alias_3, ''), category
		FROM dl_account_mappings
		ORDER BY normalized_key
	`)
	if err != nil {
		return nil, storeErr("load mappings", err)
	}
	defer rows.Close()

	var out []contracts.AccountMapping
	for rows.Next() {
		var (
			m       contracts.AccountMapping
			key     string
			aliases [contracts.MaxAliases]string
		)
		if err := rows.Scan(&key, &m.TaxonomyID, &m.PrimaryName, &aliases[0], &aliases[1], &aliases[2], &m.Category); err != nil {
			return nil, storeErr("scan mapping", err)
		}
		m.Key = contracts.AccountKey(key)
		for _, a := range aliases {
			if a != "" {
				m.Aliases = append(m.Aliases, a)
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("load mappings", err)
	}
	return out, nil
}

// UpsertMappings seeds or overwrites mapping rows, returning the number written
func (r *MappingRepository) UpsertMappings(ctx context.Context, mappings []contracts.AccountMapping) (int, error) {
	batch := &pgx.Batch{}
	for _, m := range mappings {
		if !contracts.IsAccountKey(m.Key) {
			return 0, fmt.Errorf("unknown account key %q", m.Key)
		}
		var aliases [contracts.MaxAliases]*string
		for i := 0; i < len(m.Aliases) && i < contracts.MaxAliases; i++ {
			a := m.Aliases[i]
			aliases[i] = &a
		}
		var taxonomy *string
		if m.TaxonomyID != "" {
			taxonomy = &m.TaxonomyID
		}
		batch.Queue(`
			INSERT INTO dl_account_mappings (
				normalized_key, xbrl_account_id, primary_kr_name, alias_1, alias_2, alias_3, category, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (normalized_key)
			DO UPDATE SET
				xbrl_account_id = EXCLUDED.xbrl_account_id,
				primary_kr_name = EXCLUDED.primary_kr_name,
				alias_1 = EXCLUDED.alias_1,
				alias_2 = EXCLUDED.alias_2,
				alias_3 = EXCLUDED.alias_3,
				category = EXCLUDED.category,
				updated_at = NOW()
		`, string(m.Key), taxonomy, m.PrimaryName, aliases[0], aliases[1], aliases[2], m.Category)
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, storeErr("upsert mappings", err)
	}
	return batch.Len(), nil
}
