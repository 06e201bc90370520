package elevation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/elevation.report/internal/catalog"
	"github.com/banshee-data/elevation.report/internal/catalog/catalogdb"
	"github.com/banshee-data/elevation.report/internal/config"
	"github.com/banshee-data/elevation.report/internal/geo"
	"github.com/banshee-data/elevation.report/internal/monitoring"
)

// LoadCatalog reads a region catalog whose boundaries are in crs. Files
// ending in .db, .sqlite or .sqlite3 are read as catalog databases, migrated
// to the current schema first; anything else is parsed as CSV.
func LoadCatalog(ctx context.Context, path string, crs geo.CRS) (*catalog.Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no catalog path configured (set %s)", catalog.ErrCatalogLoad, config.CatalogEnv)
	}
	if !isDBPath(path) {
		return catalog.LoadFile(path, crs)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogLoad, err)
	}
	db, err := catalogdb.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogLoad, err)
	}
	defer db.Close()
	return db.LoadCatalog(ctx, crs)
}

// ImportCatalog reads the CSV catalog at csvPath and appends its regions to
// the catalog database at dbPath, creating and migrating the database as
// needed. Region IDs already present in the database are rejected and nothing
// is written. It returns the number of regions imported.
func ImportCatalog(ctx context.Context, csvPath, dbPath string, crs geo.CRS) (int, error) {
	if !isDBPath(dbPath) {
		return 0, fmt.Errorf("%w: %q is not a catalog database path", catalog.ErrCatalogLoad, dbPath)
	}
	c, err := catalog.LoadFile(csvPath, crs)
	if err != nil {
		return 0, err
	}
	db, err := catalogdb.New(dbPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", catalog.ErrCatalogLoad, err)
	}
	defer db.Close()
	if err := db.ImportCatalog(ctx, c); err != nil {
		return 0, err
	}
	monitoring.Logf("catalog: imported %d regions from %s into %s", c.Len(), csvPath, dbPath)
	return c.Len(), nil
}

func isDBPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// LoadCatalogFromConfig loads the catalog named by cfg after applying
// environment overrides.
func LoadCatalogFromConfig(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	cfg.ApplyEnv()
	crs, err := geo.ParseCRS(cfg.GetCatalogCRS())
	if err != nil {
		return nil, fmt.Errorf("catalog_crs: %w", err)
	}
	return LoadCatalog(ctx, cfg.GetCatalogPath(), crs)
}
