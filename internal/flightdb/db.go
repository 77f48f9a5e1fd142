// Package flightdb stores recorded and reconstructed flight tracks in SQLite.
package flightdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/flightpath/internal/recorder"
	"github.com/banshee-data/flightpath/internal/timeutil"
)

// ErrNotFound is returned when a flight id does not exist.
var ErrNotFound = errors.New("flight not found")

// TrackKind distinguishes the two tracks stored per flight.
type TrackKind string

const (
	Original      TrackKind = "original"
	Reconstructed TrackKind = "reconstructed"
)

// Flight is the metadata row of a stored flight.
type Flight struct {
	ID             string
	Name           string
	Source         string
	VelocitySource string
	CreatedAt      time.Time
	Samples        int
	Duration       float64
	FinalError     float64
	MaxError       float64
}

type DB struct {
	*sql.DB
	clock timeutil.Clock
	newID func() string
}

// Option configures a DB.
type Option func(*DB)

// WithClock sets the clock used for created_at.
func WithClock(c timeutil.Clock) Option {
	return func(db *DB) { db.clock = c }
}

// pragmas are applied to every pooled connection.
const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)&_pragma=foreign_keys(1)"

// NewDB opens the database at path and migrates it to LatestVersion.
func NewDB(path string, opts ...Option) (*DB, error) {
	db, err := OpenDB(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenDB opens the database at path without touching its schema. Use it
// to run migrations by hand.
func OpenDB(path string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", "file:"+path+pragmas)
	if err != nil {
		return nil, err
	}
	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}, newID: uuid.NewString}
	for _, o := range opts {
		o(db)
	}
	return db, nil
}

const flightColumns = `flight_id, name, source, velocity_source, created_unix_nanos,
	samples, duration_s, final_error_m, max_error_m`

const sampleColumns = `time_s, longitude_rad, latitude_rad, altitude_m,
	heading_rad, pitch_rad, roll_rad, vx, vy, vz,
	omega_x, omega_y, omega_z, ax, ay, az`

// CreateFlight inserts the metadata row of f with a fresh id and creation
// time and returns the stored flight.
func (db *DB) CreateFlight(f Flight) (Flight, error) {
	return db.createFlight(db.DB, f)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (db *DB) createFlight(x execer, f Flight) (Flight, error) {
	f.ID = db.newID()
	f.CreatedAt = db.clock.Now().UTC()
	if f.VelocitySource == "" {
		f.VelocitySource = "recorded"
	}
	_, err := x.Exec(`INSERT INTO flights (`+flightColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Source, f.VelocitySource, f.CreatedAt.UnixNano(),
		f.Samples, f.Duration, f.FinalError, f.MaxError)
	if err != nil {
		return Flight{}, fmt.Errorf("insert flight: %w", err)
	}
	return f, nil
}

// SaveFlight stores f together with both tracks in one transaction.
// f.Samples is set from the original track.
func (db *DB) SaveFlight(f Flight, original, reconstructed []recorder.Entry) (Flight, error) {
	tx, err := db.Begin()
	if err != nil {
		return Flight{}, err
	}
	defer tx.Rollback()

	f.Samples = len(original)
	f, err = db.createFlight(tx, f)
	if err != nil {
		return Flight{}, err
	}

	stmt, err := tx.Prepare(`INSERT INTO track_samples (flight_id, kind, seq, ` + sampleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Flight{}, err
	}
	defer stmt.Close()

	for _, track := range []struct {
		kind    TrackKind
		entries []recorder.Entry
	}{{Original, original}, {Reconstructed, reconstructed}} {
		for seq, e := range track.entries {
			if _, err := stmt.Exec(sampleArgs(f.ID, track.kind, seq, e)...); err != nil {
				return Flight{}, fmt.Errorf("insert %s sample %d: %w", track.kind, seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Flight{}, err
	}
	return f, nil
}

// AppendSample stores one sample of a live flight.
func (db *DB) AppendSample(flightID string, kind TrackKind, seq int, e recorder.Entry) error {
	_, err := db.Exec(`INSERT INTO track_samples (flight_id, kind, seq, `+sampleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sampleArgs(flightID, kind, seq, e)...)
	if err != nil {
		return fmt.Errorf("append %s sample %d: %w", kind, seq, err)
	}
	return nil
}

// UpdateStats stores the run statistics of an existing flight.
func (db *DB) UpdateStats(f Flight) error {
	res, err := db.Exec(`UPDATE flights SET samples = ?, duration_s = ?, final_error_m = ?, max_error_m = ?
		WHERE flight_id = ?`, f.Samples, f.Duration, f.FinalError, f.MaxError, f.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func sampleArgs(id string, kind TrackKind, seq int, e recorder.Entry) []any {
	return []any{
		id, string(kind), seq,
		e.Time, e.Longitude, e.Latitude, e.Altitude,
		e.TrueHeading, e.Pitch, e.Roll,
		e.VX, e.VY, e.VZ,
		e.OmegaX, e.OmegaY, e.OmegaZ,
		e.AX, e.AY, e.AZ,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlight(s scanner) (Flight, error) {
	var f Flight
	var created int64
	err := s.Scan(&f.ID, &f.Name, &f.Source, &f.VelocitySource, &created,
		&f.Samples, &f.Duration, &f.FinalError, &f.MaxError)
	if err != nil {
		return Flight{}, err
	}
	f.CreatedAt = time.Unix(0, created).UTC()
	return f, nil
}

// ListFlights returns all flights, newest first.
func (db *DB) ListFlights() ([]Flight, error) {
	rows, err := db.Query(`SELECT ` + flightColumns + ` FROM flights ORDER BY created_unix_nanos DESC, flight_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flights []Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

// GetFlight returns the flight with the given id or ErrNotFound.
func (db *DB) GetFlight(id string) (Flight, error) {
	f, err := scanFlight(db.QueryRow(`SELECT `+flightColumns+` FROM flights WHERE flight_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Flight{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f, err
}

// LoadTrack returns one track of a flight in sample order.
func (db *DB) LoadTrack(id string, kind TrackKind) ([]recorder.Entry, error) {
	if _, err := db.GetFlight(id); err != nil {
		return nil, err
	}
	rows, err := db.Query(`SELECT `+sampleColumns+` FROM track_samples
		WHERE flight_id = ? AND kind = ? ORDER BY seq`, id, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recorder.Entry
	for rows.Next() {
		var e recorder.Entry
		if err := rows.Scan(
			&e.Time, &e.Longitude, &e.Latitude, &e.Altitude,
			&e.TrueHeading, &e.Pitch, &e.Roll,
			&e.VX, &e.VY, &e.VZ,
			&e.OmegaX, &e.OmegaY, &e.OmegaZ,
			&e.AX, &e.AY, &e.AZ,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteFlight removes a flight and its tracks.
func (db *DB) DeleteFlight(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM track_samples WHERE flight_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM flights WHERE flight_id = ?`, id)
	if err != nil {
		return err
	}
	if err := expectOne(res); err != nil {
		return fmt.Errorf("%w: %s", err, id)
	}
	return tx.Commit()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
