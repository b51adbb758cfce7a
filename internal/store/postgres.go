package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/database"
	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	_ "github.com/lib/pq"
)

type PostgresStore struct {
	db      *sql.DB
	queries *database.Queries
}

func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	slog.Debug(">>OpenPostgres")
	defer slog.Debug("<<OpenPostgres")

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		queries: database.New(db),
	}
}

func (s *PostgresStore) GetSetpoint(ctx context.Context, bucket int) (float64, bool, error) {
	if err := validateBucket(bucket); err != nil {
		return 0, false, err
	}

	sp, err := s.queries.GetSetpoint(ctx, int32(bucket))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return sp.Temperature, true, nil
}

func (s *PostgresStore) ListSetpoints(ctx context.Context) (map[int]float64, error) {
	rows, err := s.queries.ListSetpoints(ctx)
	if err != nil {
		return nil, err
	}

	setpoints := make(map[int]float64, len(rows))
	for _, sp := range rows {
		setpoints[int(sp.Bucket)] = sp.Temperature
	}

	return setpoints, nil
}

func (s *PostgresStore) PutSetpoints(ctx context.Context, setpoints map[int]float64) error {
	slog.Debug(">>PutSetpoints", "count", len(setpoints))
	defer slog.Debug("<<PutSetpoints")

	if err := validateSetpoints(setpoints); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	now := time.Now().UTC()
	for bucket, temperature := range setpoints {
		_, err := qtx.UpsertSetpoint(ctx, database.UpsertSetpointParams{
			Bucket:      int32(bucket),
			Temperature: temperature,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("save setpoint %d: %w", bucket, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) LoadState(ctx context.Context) (thermostat.PersistedState, bool, error) {
	cs, err := s.queries.GetControllerState(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return thermostat.PersistedState{}, false, nil
	}
	if err != nil {
		return thermostat.PersistedState{}, false, err
	}

	state := thermostat.PersistedState{Mode: thermostat.Mode(cs.Mode)}
	if cs.LastOnAt.Valid {
		state.LastOnAt = cs.LastOnAt.Time
	}
	if cs.LastOffAt.Valid {
		state.LastOffAt = cs.LastOffAt.Time
	}

	return state, true, nil
}

func (s *PostgresStore) SaveState(ctx context.Context, state thermostat.PersistedState) error {
	_, err := s.queries.SaveControllerState(ctx, database.SaveControllerStateParams{
		Mode:      string(state.Mode),
		LastOnAt:  nullTime(state.LastOnAt),
		LastOffAt: nullTime(state.LastOffAt),
		UpdatedAt: time.Now().UTC(),
	})

	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
