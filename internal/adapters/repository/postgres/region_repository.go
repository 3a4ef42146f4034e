package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/kmsconnect/kms-connect/internal/core/region"
	pgdb "github.com/kmsconnect/kms-connect/internal/platform/db/postgres"
)

// RegionRepository は PostgreSQL を利用した行政区参照データの実装です。
type RegionRepository struct {
	pool pgdb.Queryer
}

// NewRegionRepository は RegionRepository を生成します。
func NewRegionRepository(pool pgdb.Queryer) *RegionRepository {
	return &RegionRepository{pool: pool}
}

// FindByCode は階層とコードで行政区を取得します。
func (r *RegionRepository) FindByCode(ctx context.Context, level region.Level, code string) (*region.Region, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT code, name, level, parent_code
          FROM regions
         WHERE level = $1
           AND code = $2
         LIMIT 1
    `, string(level), code)

	found, err := scanRegion(row)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListChildren は親コード配下の行政区を名前順に取得します。州の一覧は parentCode を空にします。
func (r *RegionRepository) ListChildren(ctx context.Context, level region.Level, parentCode string) ([]*region.Region, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT code, name, level, parent_code
          FROM regions
         WHERE level = $1
           AND COALESCE(parent_code, '') = $2
         ORDER BY name ASC, code ASC
    `, string(level), parentCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []*region.Region
	for rows.Next() {
		found, err := scanRegion(rows)
		if err != nil {
			return nil, err
		}
		regions = append(regions, found)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

func scanRegion(row pgx.Row) (*region.Region, error) {
	var (
		rg         region.Region
		level      string
		parentCode sql.NullString
	)
	if err := row.Scan(&rg.Code, &rg.Name, &level, &parentCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, region.ErrRegionNotFound
		}
		return nil, err
	}
	rg.Level = region.Level(level)
	rg.ParentCode = parentCode.String
	return &rg, nil
}
