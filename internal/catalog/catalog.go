// Package catalog keeps an SQLite index of parsed PSI surveys.
//
// Each survey is stored once per file path with its headline fields and
// the full metadata table, so surveys can be found by route, state or
// lane without reopening the files.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// ErrNotFound is returned when no survey has the requested ID.
var ErrNotFound = errors.New("catalog: survey not found")

const schema = `
CREATE TABLE IF NOT EXISTS surveys (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL UNIQUE,
	version     TEXT NOT NULL,
	state       TEXT NOT NULL,
	route       TEXT NOT NULL,
	lane_index  INTEGER NOT NULL,
	date        TEXT NOT NULL,
	time        TEXT NOT NULL,
	dmi         REAL,
	latitude    REAL,
	longitude   REAL,
	has_2d      INTEGER NOT NULL,
	has_3d      INTEGER NOT NULL,
	file_length INTEGER NOT NULL,
	added_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_surveys_route ON surveys(route, state, lane_index);
CREATE TABLE IF NOT EXISTS survey_metadata (
	survey_id TEXT NOT NULL,
	position  INTEGER NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (survey_id, position)
);
`

// Entry is one catalogued survey.
type Entry struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Version   string `json:"version"`
	State     string `json:"state"`
	Route     string `json:"route"`
	LaneIndex int    `json:"lane_index"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	// DMI and position are nil when the header holds NaN or an infinity.
	DMI        *float64  `json:"dmi"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	Has2D      bool      `json:"has_2d"`
	Has3D      bool      `json:"has_3d"`
	FileLength int64     `json:"file_length"`
	AddedAt    time.Time `json:"added_at"`
}

// Filter selects surveys. Zero fields match everything.
type Filter struct {
	Route string
	State string
	Lane  *int
	// Limit caps the result; 0 means no cap.
	Limit int
}

// Catalog is an open survey catalog. It is safe for concurrent use.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add records rec as the survey at path. A path already in the catalog
// keeps its ID and has its fields and metadata replaced.
func (c *Catalog) Add(ctx context.Context, path string, rec *psi.Record) (*Entry, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM surveys WHERE path = ?`, path).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
	case err != nil:
		return nil, fmt.Errorf("look up %s: %w", path, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO surveys (
			id, path, version, state, route, lane_index, date, time,
			dmi, latitude, longitude, has_2d, has_3d, file_length, added_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			version = excluded.version,
			state = excluded.state,
			route = excluded.route,
			lane_index = excluded.lane_index,
			date = excluded.date,
			time = excluded.time,
			dmi = excluded.dmi,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			has_2d = excluded.has_2d,
			has_3d = excluded.has_3d,
			file_length = excluded.file_length,
			added_at = excluded.added_at
	`,
		id, path, rec.Version, rec.State, rec.Route, int(rec.LaneIndex),
		rec.Date, rec.Time, finite(float64(rec.DMI)), finite(rec.Latitude), finite(rec.Longitude),
		rec.Image2D.Present(), rec.Image3D.Present(), rec.FileLength,
		time.Now().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert survey: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM survey_metadata WHERE survey_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear metadata: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO survey_metadata (survey_id, position, key, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range rec.Table().Entries() {
		value, err := e.EncodeValue()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", e.Key, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, e.Key, string(value)); err != nil {
			return nil, fmt.Errorf("insert metadata %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add: %w", err)
	}
	return c.Get(ctx, id)
}

const selectEntry = `
	SELECT id, path, version, state, route, lane_index, date, time,
	       dmi, latitude, longitude, has_2d, has_3d, file_length, added_at
	FROM surveys`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	var addedAt int64
	var dmi, lat, lon sql.NullFloat64
	err := s.Scan(
		&e.ID, &e.Path, &e.Version, &e.State, &e.Route, &e.LaneIndex, &e.Date, &e.Time,
		&dmi, &lat, &lon, &e.Has2D, &e.Has3D, &e.FileLength, &addedAt,
	)
	if err != nil {
		return nil, err
	}
	e.DMI, e.Latitude, e.Longitude = floatPtr(dmi), floatPtr(lat), floatPtr(lon)
	e.AddedAt = time.Unix(0, addedAt)
	return e, nil
}

// finite stores NaN and infinities as NULL.
func finite(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f) && !math.IsInf(f, 0)}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

// Get returns the survey with the given ID.
func (c *Catalog) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(c.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get survey %s: %w", id, err)
	}
	return e, nil
}

// Query returns surveys matching f ordered by route, lane and DMI.
func (c *Catalog) Query(ctx context.Context, f Filter) ([]*Entry, error) {
	var where []string
	var args []any
	if f.Route != "" {
		where = append(where, "route = ?")
		args = append(args, f.Route)
	}
	if f.State != "" {
		where = append(where, "state = ?")
		args = append(args, f.State)
	}
	if f.Lane != nil {
		where = append(where, "lane_index = ?")
		args = append(args, *f.Lane)
	}

	query := selectEntry
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY route, lane_index, dmi"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query surveys: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan survey: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Metadata returns the stored metadata table of a survey in parse order.
// Values are the JSON encodings captured when the survey was added.
func (c *Catalog) Metadata(ctx context.Context, id string) ([]psi.MetaEntry, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT key, value FROM survey_metadata WHERE survey_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	entries := make([]psi.MetaEntry, 0)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		entries = append(entries, psi.MetaEntry{Key: key, Value: json.RawMessage(value)})
	}
	return entries, rows.Err()
}

// Remove deletes a survey and its metadata.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM surveys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM survey_metadata WHERE survey_id = ?`, id); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return tx.Commit()
}
