package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/sensorkit/internal/monitoring"
	"github.com/banshee-data/sensorkit/internal/sensor"
	"github.com/banshee-data/sensorkit/internal/sensor/accumulator"
	"github.com/banshee-data/sensorkit/internal/sensor/entity"
	"github.com/banshee-data/sensorkit/internal/sensor/signal"
	"github.com/banshee-data/sensorkit/internal/timeutil"
)

// ErrSnapshotNotFound is returned when no snapshot matches a lookup.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotInfo describes a stored snapshot without its contents.
type SnapshotInfo struct {
	ID           string
	SensorID     string
	Cycle        int
	CreatedAt    time.Time
	Accumulators int
}

// Record is a stored snapshot with its contents.
type Record struct {
	SnapshotInfo
	Snapshot sensor.Snapshot
}

// SnapshotStore reads and writes sensor snapshots.
type SnapshotStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases shared across calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	s := New(db)
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Logf("[Snapshot] opened snapshot store at %s", path)
	return s, nil
}

// New wraps an already open database. The caller runs MigrateUp.
func New(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db, clock: timeutil.RealClock{}}
}

// SetClock replaces the time source used to stamp snapshots.
func (s *SnapshotStore) SetClock(c timeutil.Clock) { s.clock = c }

// DB returns the underlying database handle.
func (s *SnapshotStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SnapshotStore) Close() error { return s.db.Close() }

// Save stores snap for sensorID and returns the new snapshot id.
func (s *SnapshotStore) Save(ctx context.Context, sensorID string, cycle int, snap sensor.Snapshot) (string, error) {
	if sensorID == "" {
		return "", fmt.Errorf("sensorID is required to save a snapshot")
	}
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sensor_snapshots (snapshot_id, sensor_id, cycle, created_unix_nanos)
		VALUES (?, ?, ?, ?)`,
		id, sensorID, cycle, s.clock.Now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	accStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sensor_snapshot_accumulators (
			snapshot_id, position, target, last_update_cycle,
			prev_object, prev_strength,
			prev_center_x, prev_center_y, prev_center_z,
			prev_size_x, prev_size_y, prev_size_z
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare accumulator insert: %w", err)
	}
	defer accStmt.Close()

	inStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sensor_snapshot_inputs (
			snapshot_id, accumulator, position, source, object, strength,
			center_x, center_y, center_z, size_x, size_y, size_z
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare input insert: %w", err)
	}
	defer inStmt.Close()

	for i, acc := range snap {
		if len(acc.SourceKeys) != len(acc.Values) {
			return "", fmt.Errorf("accumulator %d has %d keys but %d values", i, len(acc.SourceKeys), len(acc.Values))
		}
		prev := acc.PreviousOutput
		if _, err := accStmt.ExecContext(ctx,
			id, i, handleToDB(acc.Target), acc.LastUpdateCycle,
			handleToDB(prev.Object), prev.Strength,
			prev.Shape.Center.X, prev.Shape.Center.Y, prev.Shape.Center.Z,
			prev.Shape.Size.X, prev.Shape.Size.Y, prev.Shape.Size.Z,
		); err != nil {
			return "", fmt.Errorf("insert accumulator %d: %w", i, err)
		}
		for j, key := range acc.SourceKeys {
			v := acc.Values[j]
			if _, err := inStmt.ExecContext(ctx,
				id, i, j, handleToDB(key), handleToDB(v.Object), v.Strength,
				v.Shape.Center.X, v.Shape.Center.Y, v.Shape.Center.Z,
				v.Shape.Size.X, v.Shape.Size.Y, v.Shape.Size.Z,
			); err != nil {
				return "", fmt.Errorf("insert input %d of accumulator %d: %w", j, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save snapshot tx: %w", err)
	}
	monitoring.Debugf("[Snapshot] saved %s for %s (%d accumulators)", id, sensorID, len(snap))
	return id, nil
}

// Load returns the snapshot with the given id.
func (s *SnapshotStore) Load(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.snapshot_id, s.sensor_id, s.cycle, s.created_unix_nanos,
			(SELECT COUNT(*) FROM sensor_snapshot_accumulators a WHERE a.snapshot_id = s.snapshot_id)
		FROM sensor_snapshots s
		WHERE s.snapshot_id = ?`, id)
	return s.load(ctx, row)
}

// Latest returns the most recent snapshot for sensorID.
func (s *SnapshotStore) Latest(ctx context.Context, sensorID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.snapshot_id, s.sensor_id, s.cycle, s.created_unix_nanos,
			(SELECT COUNT(*) FROM sensor_snapshot_accumulators a WHERE a.snapshot_id = s.snapshot_id)
		FROM sensor_snapshots s
		WHERE s.sensor_id = ?
		ORDER BY s.created_unix_nanos DESC, s.rowid DESC
		LIMIT 1`, sensorID)
	return s.load(ctx, row)
}

// List returns the snapshots for sensorID, newest first.
func (s *SnapshotStore) List(ctx context.Context, sensorID string) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.snapshot_id, s.sensor_id, s.cycle, s.created_unix_nanos,
			(SELECT COUNT(*) FROM sensor_snapshot_accumulators a WHERE a.snapshot_id = s.snapshot_id)
		FROM sensor_snapshots s
		WHERE s.sensor_id = ?
		ORDER BY s.created_unix_nanos DESC, s.rowid DESC`, sensorID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// Delete removes one snapshot and its contents.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sensor_snapshots WHERE snapshot_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// Prune keeps the newest keep snapshots for sensorID and deletes the rest.
// It returns the number deleted.
func (s *SnapshotStore) Prune(ctx context.Context, sensorID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sensor_snapshots
		WHERE sensor_id = ? AND snapshot_id NOT IN (
			SELECT snapshot_id FROM sensor_snapshots
			WHERE sensor_id = ?
			ORDER BY created_unix_nanos DESC, rowid DESC
			LIMIT ?
		)`, sensorID, sensorID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInfo(sc scanner) (SnapshotInfo, error) {
	var info SnapshotInfo
	var created int64
	if err := sc.Scan(&info.ID, &info.SensorID, &info.Cycle, &created, &info.Accumulators); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return info, ErrSnapshotNotFound
		}
		return info, fmt.Errorf("scan snapshot: %w", err)
	}
	info.CreatedAt = time.Unix(0, created).UTC()
	return info, nil
}

func (s *SnapshotStore) load(ctx context.Context, row *sql.Row) (*Record, error) {
	info, err := scanInfo(row)
	if err != nil {
		return nil, err
	}

	snap := make(sensor.Snapshot, info.Accumulators)
	accRows, err := s.db.QueryContext(ctx, `
		SELECT position, target, last_update_cycle,
			prev_object, prev_strength,
			prev_center_x, prev_center_y, prev_center_z,
			prev_size_x, prev_size_y, prev_size_z
		FROM sensor_snapshot_accumulators
		WHERE snapshot_id = ?
		ORDER BY position`, info.ID)
	if err != nil {
		return nil, fmt.Errorf("query accumulators: %w", err)
	}
	for accRows.Next() {
		var pos int
		var target, prevObject int64
		var st accumulator.State[entity.Handle, signal.Signal]
		var prev signal.Signal
		if err := accRows.Scan(&pos, &target, &st.LastUpdateCycle,
			&prevObject, &prev.Strength,
			&prev.Shape.Center.X, &prev.Shape.Center.Y, &prev.Shape.Center.Z,
			&prev.Shape.Size.X, &prev.Shape.Size.Y, &prev.Shape.Size.Z,
		); err != nil {
			accRows.Close()
			return nil, fmt.Errorf("scan accumulator: %w", err)
		}
		if pos < 0 || pos >= len(snap) {
			accRows.Close()
			return nil, fmt.Errorf("accumulator position %d out of range", pos)
		}
		st.Target = handleFromDB(target)
		prev.Object = handleFromDB(prevObject)
		st.PreviousOutput = prev
		snap[pos] = st
	}
	accRows.Close()
	if err := accRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accumulators: %w", err)
	}

	inRows, err := s.db.QueryContext(ctx, `
		SELECT accumulator, source, object, strength,
			center_x, center_y, center_z, size_x, size_y, size_z
		FROM sensor_snapshot_inputs
		WHERE snapshot_id = ?
		ORDER BY accumulator, position`, info.ID)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer inRows.Close()
	for inRows.Next() {
		var acc int
		var source, object int64
		var v signal.Signal
		var c, sz r3.Vec
		if err := inRows.Scan(&acc, &source, &object, &v.Strength,
			&c.X, &c.Y, &c.Z, &sz.X, &sz.Y, &sz.Z,
		); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		if acc < 0 || acc >= len(snap) {
			return nil, fmt.Errorf("input references missing accumulator %d", acc)
		}
		v.Object = handleFromDB(object)
		v.Shape = signal.Bounds{Center: c, Size: sz}
		snap[acc].SourceKeys = append(snap[acc].SourceKeys, handleFromDB(source))
		snap[acc].Values = append(snap[acc].Values, v)
	}
	if err := inRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs: %w", err)
	}

	return &Record{SnapshotInfo: info, Snapshot: snap}, nil
}

// Handles use the full 64 bits; SQLite integers are signed.
func handleToDB(h entity.Handle) int64 { return int64(h) }

func handleFromDB(v int64) entity.Handle { return entity.Handle(v) }
