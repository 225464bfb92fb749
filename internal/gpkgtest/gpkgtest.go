// Package gpkgtest builds small GeoPackage files for tests
package gpkgtest

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// Feature is one point feature of a fixture table
type Feature struct {
	ID          int64
	Name        string
	Lon         float64
	Lat         float64
	Description string
	Population  int64
	ElevationM  float64
}

// CitiesBase holds five Italian cities
var CitiesBase = []Feature{
	{ID: 1, Name: "Roma", Lon: 12.4964, Lat: 41.9028, Description: "Capital of Italy", Population: 2870500, ElevationM: 21.0},
	{ID: 2, Name: "Milano", Lon: 9.1900, Lat: 45.4642, Description: "Financial capital of Italy", Population: 1396059, ElevationM: 120.0},
	{ID: 3, Name: "Napoli", Lon: 14.2681, Lat: 40.8518, Description: "Major city in southern Italy", Population: 967068, ElevationM: 17.0},
	{ID: 4, Name: "Torino", Lon: 7.6869, Lat: 45.0703, Description: "Industrial city in northern Italy", Population: 870952, ElevationM: 239.0},
	{ID: 5, Name: "Firenze", Lon: 11.2558, Lat: 43.7696, Description: "Renaissance art capital", Population: 382808, ElevationM: 50.0},
}

// CitiesModified differs from CitiesBase by two updates (1, 4),
// two deletes (3, 5) and two inserts (6, 7)
var CitiesModified = []Feature{
	{ID: 1, Name: "Roma", Lon: 12.4964, Lat: 41.9028, Description: "Capital of Italy - Updated 2024", Population: 2873000, ElevationM: 21.0},
	{ID: 2, Name: "Milano", Lon: 9.1900, Lat: 45.4642, Description: "Financial capital of Italy", Population: 1396059, ElevationM: 120.0},
	{ID: 4, Name: "Torino", Lon: 7.6869, Lat: 45.0703, Description: "Industrial city in Piedmont", Population: 875000, ElevationM: 239.0},
	{ID: 6, Name: "Bologna", Lon: 11.3426, Lat: 44.4949, Description: "University city in Emilia-Romagna", Population: 392203, ElevationM: 54.0},
	{ID: 7, Name: "Venezia", Lon: 12.3155, Lat: 45.4408, Description: "City of canals", Population: 261905, ElevationM: 1.0},
}

var regions = []string{
	"Lombardia", "Lazio", "Campania", "Sicilia", "Veneto",
	"Emilia-Romagna", "Piemonte", "Puglia", "Toscana", "Calabria",
}

// Locations generates n reproducible features inside Italy's bounding box
func Locations(n int, seed int64) []Feature {
	rng := rand.New(rand.NewSource(seed))
	features := make([]Feature, 0, n)
	for i := 1; i <= n; i++ {
		features = append(features, Feature{
			ID:          int64(i),
			Name:        fmt.Sprintf("Location_%03d", i),
			Lon:         6.6 + rng.Float64()*(18.5-6.6),
			Lat:         36.6 + rng.Float64()*(47.1-36.6),
			Description: "Test location in " + regions[rng.Intn(len(regions))],
			Population:  1000 + rng.Int63n(499001),
			ElevationM:  rng.Float64() * 2000,
		})
	}
	return features
}

// PointGeometry encodes a point as a GeoPackage binary geometry:
// an eight byte GP header without envelope followed by little-endian WKB
func PointGeometry(lon, lat float64, srsID int32) []byte {
	var buf bytes.Buffer
	buf.WriteString("GP")
	buf.WriteByte(0) // version
	buf.WriteByte(1) // flags: little-endian, no envelope
	_ = binary.Write(&buf, binary.LittleEndian, srsID)

	buf.WriteByte(1) // WKB byte order
	_ = binary.Write(&buf, binary.LittleEndian, uint32(1))
	_ = binary.Write(&buf, binary.LittleEndian, lon)
	_ = binary.Write(&buf, binary.LittleEndian, lat)
	return buf.Bytes()
}

const metadataSchema = `
CREATE TABLE IF NOT EXISTS gpkg_spatial_ref_sys (
	srs_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL PRIMARY KEY,
	organization TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition TEXT NOT NULL,
	description TEXT
);
CREATE TABLE IF NOT EXISTS gpkg_contents (
	table_name TEXT NOT NULL PRIMARY KEY,
	data_type TEXT NOT NULL,
	identifier TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x DOUBLE,
	min_y DOUBLE,
	max_x DOUBLE,
	max_y DOUBLE,
	srs_id INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);
CREATE TABLE IF NOT EXISTS gpkg_geometry_columns (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL,
	z TINYINT NOT NULL,
	m TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
);
INSERT OR IGNORE INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition, description)
VALUES ('WGS 84 geodetic', 4326, 'EPSG', 4326, 'GEOGCS["WGS 84"]', 'longitude/latitude coordinates in decimal degrees on the WGS 84 spheroid');
INSERT OR IGNORE INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition)
VALUES ('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined');
INSERT OR IGNORE INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition)
VALUES ('Undefined geographic SRS', 0, 'NONE', 0, 'undefined');
`

// Create writes a GeoPackage at path holding one point table.
// Calling it again on the same path adds another table.
func Create(path, table string, features []Feature, description string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA application_id = 1196444487`); err != nil {
		return fmt.Errorf("set application id: %w", err)
	}
	if _, err := db.Exec(metadataSchema); err != nil {
		return fmt.Errorf("create metadata tables: %w", err)
	}

	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		fid INTEGER PRIMARY KEY AUTOINCREMENT,
		geom BLOB,
		name TEXT NOT NULL,
		description TEXT,
		population INTEGER,
		elevation_m REAL
	)`, table)
	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	var minX, minY, maxX, maxY any
	if len(features) > 0 {
		x0, y0, x1, y1 := features[0].Lon, features[0].Lat, features[0].Lon, features[0].Lat
		for _, f := range features[1:] {
			x0, x1 = min(x0, f.Lon), max(x1, f.Lon)
			y0, y1 = min(y0, f.Lat), max(y1, f.Lat)
		}
		minX, minY, maxX, maxY = x0, y0, x1, y1
	}

	if _, err := db.Exec(`INSERT OR REPLACE INTO gpkg_contents
		(table_name, data_type, identifier, description, srs_id, min_x, min_y, max_x, max_y)
		VALUES (?, 'features', ?, ?, 4326, ?, ?, ?, ?)`,
		table, table, description, minX, minY, maxX, maxY); err != nil {
		return fmt.Errorf("register contents: %w", err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO gpkg_geometry_columns
		(table_name, column_name, geometry_type_name, srs_id, z, m)
		VALUES (?, 'geom', 'POINT', 4326, 0, 0)`, table); err != nil {
		return fmt.Errorf("register geometry column: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := fmt.Sprintf(`INSERT INTO %q (fid, geom, name, description, population, elevation_m) VALUES (?, ?, ?, ?, ?, ?)`, table)
	for _, f := range features {
		if _, err := tx.Exec(insert, f.ID, PointGeometry(f.Lon, f.Lat, 4326), f.Name, f.Description, f.Population, f.ElevationM); err != nil {
			return fmt.Errorf("insert feature %d: %w", f.ID, err)
		}
	}

	return tx.Commit()
}

// Write creates dir/name with one table and returns its path.
// The test fails immediately on error.
func Write(t testing.TB, dir, name, table string, features []Feature) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := Create(path, table, features, "Test GeoPackage"); err != nil {
		t.Fatalf("create fixture %s: %v", name, err)
	}
	return path
}
