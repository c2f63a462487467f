// Package trackstore persists tracker output to SQLite so replays can be inspected afterwards.
package trackstore

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/LdDl/mot-cascade/mot"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Store wraps SQLite connection holding runs and per-frame observations.
type Store struct {
	db *sql.DB
}

// Run is a single tracker session recorded into the store.
type Run struct {
	ID        string
	Epoch     uuid.UUID
	Config    mot.TuningFile
	StartedAt time.Time
}

// Observation is one reported track on one frame.
type Observation struct {
	Frame    uint64
	TrackID  uint64
	State    mot.TrackState
	Class    string
	BBox     mot.Rectangle
	Velocity mot.Velocity
	Age      int
}

// Open creates or opens database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "can't open database")
	}
	// Foreign keys pragma is per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't enable foreign keys")
	}
	s := &Store{
		db: db,
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't run migrations")
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// BeginRun registers new run for tracker epoch and returns its identifier.
func (s *Store) BeginRun(epoch uuid.UUID, cfg mot.Config) (string, error) {
	cfgJSON, err := json.Marshal(mot.NewTuningFile(cfg))
	if err != nil {
		return "", errors.Wrap(err, "can't encode config")
	}
	runID := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO runs (id, epoch, config, started_at) VALUES (?, ?, ?, ?)`,
		runID, epoch.String(), string(cfgJSON), time.Now().UnixMilli(),
	)
	if err != nil {
		return "", errors.Wrapf(err, "can't insert run for epoch %s", epoch)
	}
	return runID, nil
}

// GetRun returns run by its identifier.
func (s *Store) GetRun(runID string) (*Run, error) {
	var (
		run       Run
		epoch     string
		cfgJSON   string
		startedAt int64
	)
	err := s.db.QueryRow(
		`SELECT id, epoch, config, started_at FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &epoch, &cfgJSON, &startedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can't query run %s", runID)
	}
	run.StartedAt = time.UnixMilli(startedAt)
	run.Epoch, err = uuid.Parse(epoch)
	if err != nil {
		return nil, errors.Wrapf(err, "run %s has malformed epoch", runID)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return nil, errors.Wrapf(err, "run %s has malformed config", runID)
	}
	return &run, nil
}

// RecordFrame stores every reported track of the frame in a single transaction.
func (s *Store) RecordFrame(runID string, frame uint64, records []mot.TrackRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO observations
		(run_id, frame, track_id, state, class, x, y, w, h, vx, vy, age)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "can't prepare insert")
	}
	defer stmt.Close()

	for _, record := range records {
		_, err := stmt.Exec(
			runID, int64(frame), int64(record.ID), string(record.State), record.Class,
			record.BBox.X, record.BBox.Y, record.BBox.Width, record.BBox.Height,
			record.Velocity.X, record.Velocity.Y, record.Age,
		)
		if err != nil {
			return errors.Wrapf(err, "can't insert track %s on frame %d", mot.FormatID(record.ID), frame)
		}
	}
	return tx.Commit()
}

// TrackHistory returns observations of a single track ordered by frame.
func (s *Store) TrackHistory(runID string, trackID uint64) ([]Observation, error) {
	rows, err := s.db.Query(`SELECT frame, track_id, state, class, x, y, w, h, vx, vy, age
		FROM observations WHERE run_id = ? AND track_id = ? ORDER BY frame`, runID, int64(trackID))
	if err != nil {
		return nil, errors.Wrapf(err, "can't query history of track %s", mot.FormatID(trackID))
	}
	defer rows.Close()

	history := []Observation{}
	for rows.Next() {
		var (
			obs   Observation
			frame int64
			id    int64
			state string
		)
		err := rows.Scan(
			&frame, &id, &state, &obs.Class,
			&obs.BBox.X, &obs.BBox.Y, &obs.BBox.Width, &obs.BBox.Height,
			&obs.Velocity.X, &obs.Velocity.Y, &obs.Age,
		)
		if err != nil {
			return nil, errors.Wrap(err, "can't scan observation")
		}
		obs.Frame = uint64(frame)
		obs.TrackID = uint64(id)
		obs.State = mot.TrackState(state)
		history = append(history, obs)
	}
	return history, rows.Err()
}

// CountTracks returns number of distinct track identifiers reported during run.
func (s *Store) CountTracks(runID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(DISTINCT track_id) FROM observations WHERE run_id = ?`, runID,
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "can't count tracks of run %s", runID)
	}
	return count, nil
}
