package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/dartlens/backend/internal/contracts"
)

// CorpRepository reads and refreshes the dl_corps registry
// ⭐ SSOT: 상장사 corp_code 레지스트리는 여기서만
type CorpRepository struct {
	pool *pgxpool.Pool
}

// NewCorpRepository creates a new corp repository
func NewCorpRepository(pool *pgxpool.Pool) *CorpRepository {
	return &CorpRepository{pool: pool}
}

var _ contracts.CorpDirectory = (*CorpRepository)(nil)

// LookupCorp returns one registered corp, or nil when the code is unknown
func (r *CorpRepository) LookupCorp(ctx context.Context, corpCode string) (*contracts.Corp, error) {
	var c contracts.Corp
	err := r.pool.QueryRow(ctx, `
		SELECT corp_code, corp_name, stock_code, modify_date
		FROM dl_corps
		WHERE corp_code = $1
	`, corpCode).Scan(&c.CorpCode, &c.CorpName, &c.StockCode, &c.ModifyDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("lookup corp", err)
	}
	return &c, nil
}

// SearchCorps matches names anywhere and codes by prefix.
// Exact name matches rank first, then name matches, then code matches.
func (r *CorpRepository) SearchCorps(ctx context.Context, query string, limit int) ([]contracts.Corp, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []contracts.Corp{}, nil
	}
	like := "%" + escapeLike(query) + "%"
	prefix := escapeLike(query) + "%"

	rows, err := r.pool.Query(ctx, `
		SELECT corp_code, corp_name, stock_code, modify_date
		FROM dl_corps
		WHERE corp_name ILIKE $1 OR corp_code LIKE $2 OR stock_code LIKE $2
		ORDER BY
			CASE
				WHEN corp_name = $3 THEN 0
				WHEN corp_name ILIKE $1 THEN 1
				ELSE 2
			END,
			corp_name
		LIMIT $4
	`, like, prefix, query, limit)
	if err != nil {
		return nil, storeErr("search corps", err)
	}
	defer rows.Close()

	out := []contracts.Corp{}
	for rows.Next() {
		var c contracts.Corp
		if err := rows.Scan(&c.CorpCode, &c.CorpName, &c.StockCode, &c.ModifyDate); err != nil {
			return nil, storeErr("scan corp", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search corps", err)
	}
	return out, nil
}

// ReplaceCorps upserts the given listing and removes corps missing from it,
// in one transaction. An empty listing is rejected so a bad download never wipes the table.
func (r *CorpRepository) ReplaceCorps(ctx context.Context, corps []contracts.Corp) (written, removed int, err error) {
	if len(corps) == 0 {
		return 0, 0, fmt.Errorf("refusing to replace corp registry with an empty listing")
	}

	codes := make([]string, 0, len(corps))
	batch := &pgx.Batch{}
	for _, c := range corps {
		codes = append(codes, c.CorpCode)
		batch.Queue(`
			INSERT INTO dl_corps (corp_code, corp_name, stock_code, modify_date, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (corp_code)
			DO UPDATE SET
				corp_name = EXCLUDED.corp_name,
				stock_code = EXCLUDED.stock_code,
				modify_date = EXCLUDED.modify_date,
				updated_at = NOW()
		`, c.CorpCode, c.CorpName, c.StockCode, c.ModifyDate)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM dl_corps WHERE corp_code <> ALL($1)`, codes)
		if err != nil {
			return err
		}
		removed = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, 0, storeErr("replace corps", err)
	}
	return len(corps), removed, nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
