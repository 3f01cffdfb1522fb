package epsg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DefaultQuery reads coordinate systems and their areas of use from an EPSG
// dataset imported into PostgreSQL.
const DefaultQuery = `SELECT crs.coord_ref_sys_code, crs.coord_ref_sys_name,
	COALESCE(crs.remarks, ''), COALESCE(crs.data_source, ''), crs.deprecated <> 0,
	a.bbox_west_bound_lon, a.bbox_east_bound_lon, a.bbox_south_bound_lat, a.bbox_north_bound_lat
FROM epsg_coordinatereferencesystem crs
JOIN epsg_area a ON a.area_code = crs.area_of_use_code`

// Querier is satisfied by *pgx.Conn and *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadDB adds every row returned by query to t. Rows must have the column
// layout of DefaultQuery. It returns the number of rows read.
func (t *Table) LoadDB(ctx context.Context, q Querier, query string) (int, error) {
	if query == "" {
		query = DefaultQuery
	}
	rows, err := q.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("query epsg records: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Code, &r.Name, &r.Scope, &r.Source, &r.Deprecated,
			&r.BBox.West, &r.BBox.East, &r.BBox.South, &r.BBox.North); err != nil {
			return n, fmt.Errorf("scan epsg record: %w", err)
		}
		t.Add(r)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("read epsg records: %w", err)
	}
	return n, nil
}

// LoadDatabase connects to url, loads the records and disconnects.
func (t *Table) LoadDatabase(ctx context.Context, url, query string) (int, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("connect epsg database: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()
	return t.LoadDB(ctx, conn, query)
}
