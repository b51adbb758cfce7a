package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/dgraph-io/badger/v4"
)

const (
	setpointKeyPrefix = "setpoint/"
	stateKey          = "controller/state"
)

// BadgerStore keeps setpoints and controller state in an embedded key/value store.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadger(path string) (*BadgerStore, error) {
	slog.Debug(">>OpenBadger", "path", path)
	defer slog.Debug("<<OpenBadger")

	return openBadger(badger.DefaultOptions(path))
}

// OpenBadgerInMemory keeps nothing on disk.
func OpenBadgerInMemory() (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true))
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) GetSetpoint(ctx context.Context, bucket int) (float64, bool, error) {
	if err := validateBucket(bucket); err != nil {
		return 0, false, err
	}

	var temperature float64
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(setpointKey(bucket))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			temperature, err = decodeFloat(val)
			found = err == nil
			return err
		})
	})

	return temperature, found, err
}

func (s *BadgerStore) ListSetpoints(ctx context.Context) (map[int]float64, error) {
	setpoints := make(map[int]float64)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(setpointKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			bucket, err := strconv.Atoi(strings.TrimPrefix(string(item.Key()), setpointKeyPrefix))
			if err != nil {
				return fmt.Errorf("corrupt setpoint key %q: %w", item.Key(), err)
			}

			err = item.Value(func(val []byte) error {
				t, err := decodeFloat(val)
				if err != nil {
					return err
				}
				setpoints[bucket] = t
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return setpoints, nil
}

func (s *BadgerStore) PutSetpoints(ctx context.Context, setpoints map[int]float64) error {
	slog.Debug(">>PutSetpoints", "count", len(setpoints))
	defer slog.Debug("<<PutSetpoints")

	if err := validateSetpoints(setpoints); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for bucket, temperature := range setpoints {
			if err := txn.Set(setpointKey(bucket), encodeFloat(temperature)); err != nil {
				return fmt.Errorf("save setpoint %d: %w", bucket, err)
			}
		}
		return nil
	})
}

func (s *BadgerStore) LoadState(ctx context.Context) (thermostat.PersistedState, bool, error) {
	var state thermostat.PersistedState
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stateKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &state); err != nil {
				return fmt.Errorf("corrupt controller state: %w", err)
			}
			found = true
			return nil
		})
	})

	return state, found, err
}

func (s *BadgerStore) SaveState(ctx context.Context, state thermostat.PersistedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(stateKey), data)
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func setpointKey(bucket int) []byte {
	return []byte(setpointKeyPrefix + strconv.Itoa(bucket))
}

func encodeFloat(v float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

func decodeFloat(val []byte) (float64, error) {
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt setpoint value of %d bytes", len(val))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(val)), nil
}
