// Package catalogdb stores the region catalog in SQLite. The schema is
// managed by embedded golang-migrate migrations.
package catalogdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/banshee-data/elevation.report/internal/catalog"
	"github.com/banshee-data/elevation.report/internal/geo"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// New opens the catalog database at path, creating it if needed, and brings
// its schema up to date.
func New(path string) (*DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Open opens (creating if needed) the catalog database at path without
// touching its schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	return &DB{db}, nil
}

// InsertRegion adds one region. Boundaries are stored as WKT in the catalog
// CRS; an empty CRS column means the region inherits the catalog CRS.
func (db *DB) InsertRegion(ctx context.Context, r catalog.Region) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO regions (region_id, source, boundary_wkt, year, crs) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Source, geo.FormatWKT(r.Boundary), r.Year, crsColumn(r.CRS))
	if err != nil {
		return fmt.Errorf("insert region %q: %w", r.ID, err)
	}
	return nil
}

// ImportCatalog copies every region of c in a single transaction.
func (db *DB) ImportCatalog(ctx context.Context, c *catalog.Catalog) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO regions (region_id, source, boundary_wkt, year, crs) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range c.Regions() {
		crs := ""
		if !r.CRS.Equal(c.CRS()) {
			crs = crsColumn(r.CRS)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Source, geo.FormatWKT(r.Boundary), r.Year, crs); err != nil {
			return fmt.Errorf("insert region %q: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func crsColumn(c geo.CRS) string {
	if c.IsZero() {
		return ""
	}
	return c.String()
}

// LoadCatalog reads every region, in insertion order, into an immutable
// catalog whose boundaries are in crs.
func (db *DB) LoadCatalog(ctx context.Context, crs geo.CRS) (*catalog.Catalog, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT region_id, source, boundary_wkt, year, crs FROM regions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogLoad, err)
	}
	defer rows.Close()

	var regions []catalog.Region
	for rows.Next() {
		var (
			r         catalog.Region
			wkt, crsS string
		)
		if err := rows.Scan(&r.ID, &r.Source, &wkt, &r.Year, &crsS); err != nil {
			return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogLoad, err)
		}
		if r.Boundary, err = geo.ParseWKTPolygon(wkt); err != nil {
			return nil, fmt.Errorf("%w: region %q: %v", catalog.ErrCatalogLoad, r.ID, err)
		}
		if crsS != "" {
			if r.CRS, err = geo.ParseCRS(crsS); err != nil {
				return nil, fmt.Errorf("%w: region %q: %v", catalog.ErrCatalogLoad, r.ID, err)
			}
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogLoad, err)
	}
	return catalog.New(crs, regions)
}
